package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relatorhq/relator/pkg/config"
	"github.com/relatorhq/relator/pkg/dispatch"
	"github.com/relatorhq/relator/pkg/provider"
)

var fireCmd = &cobra.Command{
	Use:   "fire",
	Short: "Fire the scheduled trigger once, out of schedule",
	Long: `Fire the environment's scheduled trigger immediately without waiting
for the next scheduled occurrence. The schedule itself is untouched.

Examples:
  # Fire the trigger from a manifest
  relator fire -f env.yaml

  # Invoke the service endpoint directly, bypassing the trigger
  relator fire -f env.yaml --direct https://pauta-service-xyz.a.run.app`,
	RunE: runFire,
}

func init() {
	fireCmd.Flags().StringP("file", "f", "", "Environment manifest (required)")
	fireCmd.Flags().String("direct", "", "Invoke this service URI directly instead of the trigger")
	_ = fireCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(fireCmd)
}

func runFire(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	direct, _ := cmd.Flags().GetString("direct")

	manifest, err := config.LoadManifest(filename)
	if err != nil {
		return err
	}

	prov := provider.NewGcloudProvider(manifest.Spec.Project, manifest.Spec.Region)
	disp := dispatch.NewDispatcher(prov)

	if direct != "" {
		if err := disp.InvokeService(cmd.Context(), direct); err != nil {
			return &exitError{code: exitReconcile, err: err}
		}
		fmt.Printf("✓ Service %s invoked\n", direct)
		return nil
	}

	if err := disp.FireNow(cmd.Context(), manifest.Spec.Trigger.Name); err != nil {
		return &exitError{code: exitReconcile, err: err}
	}
	fmt.Printf("✓ Trigger %s fired\n", manifest.Spec.Trigger.Name)
	return nil
}
