package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relatorhq/relator/pkg/config"
	"github.com/relatorhq/relator/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes: the most specific failing condition wins
const (
	exitOK        = 0
	exitConfig    = 1
	exitReconcile = 2
	exitSession   = 3
)

// exitError carries a process exit code alongside the failure
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(codeFor(err))
	}
}

func codeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		return exitConfig
	}
	return exitConfig
}

var rootCmd = &cobra.Command{
	Use:   "relator",
	Short: "Relator - provisioning and scheduling for the agenda report pipeline",
	Long: `Relator provisions the cloud environment for the recurring agenda
report pipeline (registry, secrets, service identity, deployed service,
scheduled trigger) and runs report sessions against it with bounded retry.

Provisioning is idempotent: re-running deploy against an unchanged manifest
is a remote no-op, whatever partial state earlier runs left behind.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Relator version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs instead of console output")
}
