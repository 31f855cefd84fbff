package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/clouddesk/tenantctl/internal/config"
	"github.com/clouddesk/tenantctl/internal/intent"
	"github.com/clouddesk/tenantctl/internal/tabular"
)

// planCmdRunner is swapped out by tests.
var planCmdRunner = runPlan

func newPlanCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <config.yaml>",
		Short: "Show the intents a batch would produce, without touching the tenant",
		Long: `Plan reads the batch file, maps each row to a resource intent and prints
what a provision run would act on. No credentials are needed and nothing is
created or removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				ConfigPath: args[0],
				Verbose:    flags.verbose,
				Out:        cmd.OutOrStdout(),
			}
			if err := validateRunOptions(opts); err != nil {
				return err
			}
			return planCmdRunner(opts)
		},
	}

	return cmd
}

func runPlan(opts runOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	records, err := tabular.Load(cfg.Input.File, cfg.Input.Sheet)
	if err != nil {
		return err
	}

	intents, issues := intent.Map(records, intent.Context{
		Domain:       cfg.Context.Domain,
		DefaultOwner: cfg.Context.DefaultOwner,
	})

	t := table.NewWriter()
	t.SetOutputMirror(opts.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ROW", "TYPE", "KEY", "STATE", "MEMBERS"})
	for _, in := range intents {
		t.AppendRow(table.Row{in.Row, in.Type, in.Key, in.DesiredState, strings.Join(in.Members, "; ")})
	}
	t.Render()

	fmt.Fprintf(opts.Out, "%d intents from %s\n", len(intents), cfg.Input.File)

	for _, issue := range issues {
		fmt.Fprintln(opts.Out, issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d rows could not be mapped", len(issues))
	}
	return nil
}
