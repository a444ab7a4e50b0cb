package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/dynarename/internal/apply"
	"github.com/conduit-lang/dynarename/internal/cli/ui"
	"github.com/conduit-lang/dynarename/internal/dynamo"
	"github.com/conduit-lang/dynarename/internal/journal"
	"github.com/conduit-lang/dynarename/internal/logging"
	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// newRunCommand creates the run command
func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rename attributes and write the changed items back",
		Long: `Scan the table, apply the replacement directives to every item in
memory, report how many replacements would be made and ask for
confirmation. Only an exact "Y" proceeds.

Each changed item is written back on its own, conditioned on every
attribute still holding the value that was read. The first failed write
stops the run; items written before it stay written.

Examples:
  dynarename run --table users --replace name>full_name
  dynarename run -t users -r '*addr.zip>*addr.postal_code' --timeout 30
  dynarename run -t users -r a>b -r c>d --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	addRewriteFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().String("lock-redis", "", "Redis address for the table lock; empty disables locking")
	cmd.Flags().Duration("lock-ttl", 0, "Lock expiry (default 15m)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *options) error {
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

	runID := uuid.NewString()
	logger.Info("run started",
		zap.String("run_id", runID),
		zap.String("table", cfg.Table),
		zap.Strings("rules", cfg.Replace),
	)

	reporter := ui.NewReporter(stderr, ui.ReporterOptions{
		NoColor:     cfg.NoColor,
		Interactive: isInteractive(stderr),
	})

	runnerCfg := apply.Config{
		RunID:    runID,
		Table:    cfg.Table,
		Progress: reporter.Progress,
		Logger:   logger,
	}
	var jr *journal.Journal
	if cfg.Journal.Enabled() {
		jr, err = openJournal(ctx, cfg.Journal)
		if err != nil {
			return err
		}
		defer closeQuietly("journal", jr.Close, logger)

		keys := keyAttributes(ctx, client, cfg.Table, logger)
		runnerCfg.Recorder = jr
		runnerCfg.KeyFunc = func(item rewrite.Item) string { return dynamo.KeyString(item, keys) }
	}

	var lockFn apply.LockFunc
	if cfg.Lock.Enabled() {
		fn, closeFn, err := newLockFunc(cfg.Lock, cfg.Table, runID, logger)
		if err != nil {
			return err
		}
		defer closeQuietly("lock client", closeFn, logger)
		lockFn = fn
	}

	session := apply.NewSession(apply.SessionConfig{
		Source: dynamo.NewSource(client, dynamo.SourceConfig{
			Table:   cfg.Table,
			Timeout: cfg.AWS.CallTimeout,
			Logger:  logger,
		}),
		Rules: rules,
		Runner: apply.NewRunner(dynamo.NewWriter(client, dynamo.WriterConfig{
			Table:   cfg.Table,
			Timeout: cfg.AWS.CallTimeout,
			Logger:  logger,
		}), runnerCfg),
		Confirmer: newConfirmer(cmd.InOrStdin(), stderr, cfg.Yes),
		Reporter:  reporter,
		Lock:      lockFn,
		Logger:    logger,
	})

	reporter.StartScan(cfg.Table)
	// runs before Execute renders any failure below the bar
	defer reporter.Finish()

	err = session.Run(ctx)
	logger.Info("run finished", zap.String("run_id", runID), zap.Error(err))

	if jr != nil {
		if n, cerr := jr.CountForRun(context.WithoutCancel(ctx), runID); cerr == nil {
			logger.Info("journaled writes", zap.String("run_id", runID), zap.Int("count", n))
		}
	}
	return err
}
