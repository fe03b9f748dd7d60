package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relatorhq/relator/pkg/agent"
	"github.com/relatorhq/relator/pkg/config"
	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/pipeline"
	"github.com/relatorhq/relator/pkg/runner"
	"github.com/relatorhq/relator/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session runner over HTTP",
	Long: `Start the agent HTTP server. The scheduled trigger (or a curl)
POSTs /run to execute the configured sessions; /healthz reports liveness
and /metrics exposes Prometheus metrics.

Examples:
  # Serve on the address from the agent file (default 127.0.0.1:5000)
  relator serve -c agent.toml

  # Serve on an explicit address
  relator serve -c agent.toml --addr 0.0.0.0:8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "agent.toml", "Agent configuration file")
	serveCmd.Flags().String("addr", "", "Listen address (overrides serve_addr from the agent file)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	agentPath, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")

	af, err := config.LoadAgentFile(agentPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = af.ServeAddr
	}
	sessions := config.Sessions(af)
	if len(sessions) == 1 {
		sessions[0] = config.Override(sessions[0], config.SnapshotEnv())
	}

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

	srv := agent.NewServer(runner.New(inv, journal), sessions, af.ContinueOnError, Version)
	if err := srv.Start(addr); err != nil {
		return &exitError{code: exitSession, err: err}
	}
	return nil
}
