package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conduit-lang/dynarename/internal/apply"
	"github.com/conduit-lang/dynarename/internal/cli/config"
	"github.com/conduit-lang/dynarename/internal/cli/ui"
	"github.com/conduit-lang/dynarename/internal/dynamo"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"table":          "table",
	"replace":        "replace",
	"region":         "aws.region",
	"profile":        "aws.profile",
	"endpoint":       "aws.endpoint",
	"timeout":        "aws.timeout",
	"journal-driver": "journal.driver",
	"journal-dsn":    "journal.dsn",
	"lock-redis":     "lock.redis_addr",
	"lock-ttl":       "lock.ttl",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"no-color":       "no_color",
	"yes":            "yes",
}

// options is shared by every subcommand of one root command
type options struct {
	viper      *viper.Viper
	configFile string
}

// load binds the flags cmd actually has and decodes the merged configuration
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = o.viper.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	cfg, err := config.Load(o.viper, o.configFile)
	if err != nil {
		return nil, &invalidConfigError{err: err}
	}
	if cfg.NoColor {
		color.NoColor = true
	}
	return cfg, nil
}

// invalidConfigError marks failures that happen before anything remote is touched
type invalidConfigError struct {
	err error
}

func (e *invalidConfigError) Error() string { return e.err.Error() }
func (e *invalidConfigError) Unwrap() error { return e.err }

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &options{viper: config.New()}

	rootCmd := &cobra.Command{
		Use:   "dynarename",
		Short: "Rename attributes across every item of a DynamoDB table",
		Long: color.CyanString(`dynarename - bulk attribute renames for DynamoDB

Scans a whole table, renames attributes in memory according to
replacement directives, shows what would change and, after an explicit
confirmation, writes each changed item back guarded by its original values.

Directives:
  old>new                    top-level attribute
  parent.old>parent.new      nested attribute under an exact path
  *old>*new                  attribute at any depth
  *a.old>*a.new              nested attribute under any path ending in "a"`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (default ./dynarename.yaml)")
	pf.StringP("table", "t", "", "DynamoDB table name")
	pf.String("region", "", "AWS region")
	pf.String("profile", "", "AWS shared config profile")
	pf.String("endpoint", "", "Custom DynamoDB endpoint, e.g. http://localhost:8000")
	pf.String("timeout", "", "Per-call timeout in seconds or as a duration (30, 1m)")
	pf.String("journal-driver", "", "Journal database driver (sqlite3 or pgx)")
	pf.String("journal-dsn", "", "Journal database DSN; empty disables the journal")
	pf.String("log-level", "", "Diagnostic log level (debug, info, warn, error)")
	pf.String("log-format", "", "Diagnostic log format (console or json)")
	pf.Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newPlanCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	return rootCmd
}

// addRewriteFlags adds the flags shared by run and plan
func addRewriteFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("replace", "r", nil, "Replacement directive old>new (repeatable, applied in order)")
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the dynarename version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "dynarename version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command. Interrupts cancel the context, which stops
// a scan or a write loop at the next remote call.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(rootCmd, err)
	}
	return err
}

// reportError prints err the way its kind deserves
func reportError(cmd *cobra.Command, err error) {
	stderr := cmd.ErrOrStderr()
	noColor := color.NoColor

	var cfgErr *invalidConfigError
	switch {
	case errors.Is(err, apply.ErrCanceled):
		fmt.Fprintln(cmd.OutOrStdout(), "canceled.")
	case errors.As(err, &cfgErr):
		fmt.Fprint(stderr, ui.ConfigError(err.Error(), noColor))
	case dynamo.IsScanError(err):
		fmt.Fprint(stderr, ui.ScanFailure(err, noColor))
	default:
		if applied, ok := apply.AppliedCount(err); ok {
			fmt.Fprint(stderr, ui.WriteFailure(applied, err, dynamo.IsConflict(err), noColor))
			return
		}
		ui.WriteError(stderr, ui.ErrorOptions{
			Level:   ui.ErrorLevelError,
			Context: "error",
			Problem: err.Error(),
			NoColor: noColor,
		})
	}
}
