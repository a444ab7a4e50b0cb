package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/dynarename/internal/apply"
	"github.com/conduit-lang/dynarename/internal/cli/ui"
	"github.com/conduit-lang/dynarename/internal/dynamo"
	"github.com/conduit-lang/dynarename/internal/logging"
)

// newPlanCommand creates the plan command
func newPlanCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would change without writing anything",
		Long: `Scan the table and apply the replacement directives in memory, then
list every item that would be written. Nothing is written and no
confirmation is asked for.

Items are named by the table's key attributes when the key schema can
be read, otherwise by their attribute names.

Examples:
  dynarename plan --table users --replace name>full_name`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts)
		},
	}

	addRewriteFlags(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return &invalidConfigError{err: err}
	}

	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()
	logger := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	client, err := newTableClient(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	reporter := ui.NewReporter(stderr, ui.ReporterOptions{
		NoColor:     cfg.NoColor,
		Interactive: isInteractive(stderr),
	})
	session := apply.NewSession(apply.SessionConfig{
		Source: dynamo.NewSource(client, dynamo.SourceConfig{
			Table:   cfg.Table,
			Timeout: cfg.AWS.CallTimeout,
			Logger:  logger,
		}),
		Rules:    rules,
		Reporter: reporter,
		Logger:   logger,
	})

	reporter.StartScan(cfg.Table)
	plan, err := session.Plan(ctx)
	reporter.StopScan()
	if err != nil {
		return err
	}

	if plan.Empty() {
		reporter.NoChanges(plan)
		return nil
	}
	reporter.Prepared(plan)

	out := cmd.OutOrStdout()
	summary := ui.NewKeyValueTable(out, cfg.NoColor)
	summary.AddRow("table", cfg.Table)
	summary.AddRow("scanned", fmt.Sprint(plan.Scanned))
	summary.AddRow("replacements", fmt.Sprint(plan.Result.Replacements))
	summary.AddRow("items", fmt.Sprint(len(plan.Changes)))
	summary.AddRow("overwrites", fmt.Sprint(plan.Result.Overwrites))
	summary.Render()
	fmt.Fprintln(out)

	keys := keyAttributes(ctx, client, cfg.Table, logger)
	header := "KEY"
	if len(keys) == 0 {
		header = "ATTRIBUTES"
	}

	table := ui.NewTable(out, []string{"#", header, "CHANGED"}, cfg.NoColor)
	for i, change := range plan.Changes {
		var fields []string
		for _, f := range change.ChangedFields() {
			fields = append(fields, f.Field)
		}
		table.AddRow(fmt.Sprint(i+1), dynamo.KeyString(change.Original, keys), strings.Join(fields, ", "))
	}
	table.Render()

	return nil
}
