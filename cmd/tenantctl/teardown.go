package main

import (
	"github.com/spf13/cobra"
)

// teardownCmdRunner is swapped out by tests.
var teardownCmdRunner = runReconcile

func newTeardownCmd(flags *rootFlags) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "teardown <config.yaml>",
		Short: "Remove every resource named by the batch",
		Long: `Teardown runs the batch with every row's desired state forced to absent,
removing whatever the batch previously provisioned. Rows whose resources are
already gone report not_found rather than failing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				ConfigPath: args[0],
				DryRun:     flags.dryRun,
				Verbose:    flags.verbose,
				Teardown:   true,
				Offline:    offline,
				Out:        cmd.OutOrStdout(),
			}
			if err := validateRunOptions(opts); err != nil {
				return err
			}
			return teardownCmdRunner(opts)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Target the in-memory backend instead of the tenant")

	return cmd
}
