package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/dynarename/internal/cli/config"
	"github.com/conduit-lang/dynarename/internal/cli/ui"
)

// newHistoryCommand creates the history command
func newHistoryCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List writes recorded in the journal",
		Long: `List the most recent writes recorded in the journal for a table,
newest first. Requires --journal-dsn (or journal.dsn in the config file).

Examples:
  dynarename history --table users --journal-dsn ./dynarename.db
  dynarename history -t users --limit 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Table == "" {
				return &invalidConfigError{err: config.ErrNoTable}
			}
			if !cfg.Journal.Enabled() {
				return &invalidConfigError{err: errors.New("no journal configured (use --journal-dsn)")}
			}

			ctx := cmd.Context()
			j, err := openJournal(ctx, cfg.Journal)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(ctx, cfg.Table, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprint(out, ui.Info(fmt.Sprintf("no writes recorded for %s", cfg.Table), cfg.NoColor))
				return nil
			}

			table := ui.NewTable(out, []string{"APPLIED", "RUN", "SEQ", "KEY"}, cfg.NoColor)
			for _, e := range entries {
				table.AddRow(e.AppliedAt.Local().Format(time.DateTime), e.RunID, fmt.Sprint(e.Seq), e.Key)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")

	return cmd
}
