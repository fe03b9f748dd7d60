package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relatorhq/relator/pkg/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the local run journal",
	Long: `Show past reconcile and session runs recorded in the local journal.

Examples:
  # All recorded runs
  relator runs

  # Runs of one session
  relator runs --session 73`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("journal-dir", ".", "Directory of the local run journal")
	runsCmd.Flags().String("session", "", "Show only runs of this session")
	runsCmd.Flags().Bool("reconcile", false, "Show reconcile runs instead of session runs")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	journalDir, _ := cmd.Flags().GetString("journal-dir")
	sessionID, _ := cmd.Flags().GetString("session")
	reconcile, _ := cmd.Flags().GetBool("reconcile")

	journal, err := storage.OpenJournal(journalDir)
	if err != nil {
		return err
	}
	defer journal.Close()

	if reconcile {
		runs, err := journal.ListReconcileRuns()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("%s  %-9s  resources=%d  %s%s\n",
				r.StartedAt.Format(time.RFC3339), r.Status, r.Resources, durationOf(r.StartedAt, r.FinishedAt), errSuffix(r.Error))
		}
		return nil
	}

	runs, err := journal.ListSessionRuns(sessionID)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  session=%-6s  %-9s  attempts=%d  %s%s\n",
			r.StartedAt.Format(time.RFC3339), r.SessionID, r.Status, r.Attempts, durationOf(r.StartedAt, r.FinishedAt), errSuffix(r.Error))
	}
	return nil
}

func durationOf(start time.Time, finish *time.Time) string {
	if finish == nil {
		return "running"
	}
	return finish.Sub(start).Round(time.Millisecond).String()
}

func errSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return "  error: " + msg
}
