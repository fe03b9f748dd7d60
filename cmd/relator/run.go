package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relatorhq/relator/pkg/config"
	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/pipeline"
	"github.com/relatorhq/relator/pkg/runner"
	"github.com/relatorhq/relator/pkg/storage"
	"github.com/relatorhq/relator/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured report sessions",
	Long: `Run every session declared in the agent file, strictly in declared
order, each with its own retry budget. The batch aborts on the first
terminal failure unless continue_on_error is set (file or flag).

Examples:
  # Run all sessions
  relator run -c agent.toml

  # Run a single session by ID
  relator run -c agent.toml --session 73`,
	RunE: runSessions,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions declared in the agent file",
	RunE: func(cmd *cobra.Command, args []string) error {
		agentPath, _ := cmd.Flags().GetString("config")
		af, err := config.LoadAgentFile(agentPath)
		if err != nil {
			return err
		}
		for _, s := range config.Sessions(af) {
			fmt.Printf("%-6s %s .. %s  attempts=%d  doc=%s\n",
				s.ID, s.DateFrom, s.DateTo, s.Retry.MaxAttempts, s.OutputDocName)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "agent.toml", "Agent configuration file")
	runCmd.Flags().String("session", "", "Run only the session with this ID")
	runCmd.Flags().Bool("continue-on-error", false, "Attempt every session and aggregate failures")
	sessionsCmd.Flags().StringP("config", "c", "agent.toml", "Agent configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	agentPath, _ := cmd.Flags().GetString("config")
	only, _ := cmd.Flags().GetString("session")
	continueFlag, _ := cmd.Flags().GetBool("continue-on-error")

	af, err := config.LoadAgentFile(agentPath)
	if err != nil {
		return err
	}
	env := config.SnapshotEnv()
	sessions := config.Sessions(af)

	if only != "" {
		sessions = filterSessions(sessions, only)
		if len(sessions) == 0 {
			return config.Errorf("no session with id %s in %s", only, agentPath)
		}
	}

	// Overrides redirect one run; a batch under SESSAO/NOME_DOCX would
	// collapse every session onto the same identity
	if len(sessions) == 1 {
		sessions[0] = config.Override(sessions[0], env)
	} else if config.HasOverrides(env) {
		log.Logger.Warn().Msg("session overrides ignored: they apply only when a single session runs (use --session)")
	}

	// Transcript independent of the pipeline's own logging
	if af.LogDir != "" {
		out, f, err := log.OpenRunLog(af.LogDir, os.Stdout)
		if err != nil {
			return err
		}
		defer f.Close()
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut, Output: out})
	}

	journal, err := storage.OpenJournal(af.JournalDir)
	if err != nil {
		return &exitError{code: exitSession, err: err}
	}
	defer journal.Close()

	inv := pipeline.NewExecInvoker(af.PipelineCmd)
	inv.BaseURL = af.BaseURL

	r := runner.New(inv, journal)
	continueOnError := af.ContinueOnError || continueFlag
	if err := r.RunBatch(cmd.Context(), sessions, continueOnError); err != nil {
		return &exitError{code: exitSession, err: err}
	}

	fmt.Printf("✓ %d session(s) completed\n", len(sessions))
	return nil
}

func filterSessions(sessions []types.Session, id string) []types.Session {
	var out []types.Session
	for _, s := range sessions {
		if s.ID == id {
			out = append(out, s)
		}
	}
	return out
}
