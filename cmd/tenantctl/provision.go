package main

import (
	"github.com/spf13/cobra"
)

// provisionCmdRunner is swapped out by tests.
var provisionCmdRunner = runReconcile

func newProvisionCmd(flags *rootFlags) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "provision <config.yaml>",
		Short: "Reconcile the batch against the tenant",
		Long: `Provision reads the batch file named by the config, maps each row to a
resource intent and converges the tenant toward it. Every row yields exactly
one outcome; a failing row never stops the rest of the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				ConfigPath: args[0],
				DryRun:     flags.dryRun,
				Verbose:    flags.verbose,
				Offline:    offline,
				Out:        cmd.OutOrStdout(),
			}
			if err := validateRunOptions(opts); err != nil {
				return err
			}
			return provisionCmdRunner(opts)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Target the in-memory backend instead of the tenant")

	return cmd
}
