package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/buildinfo"
)

// ErrUnbalanced is returned by trial-balance after the report is printed when
// the columns do not reconcile.
var ErrUnbalanced = errors.New("trial balance does not reconcile")

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	repo    string
	format  string
	verbose bool

	log *zap.Logger
}

// root returns the absolute books directory.
func (o *options) root() (string, error) {
	abs, err := filepath.Abs(o.repo)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Derive ledgers, cashbooks and trial balances from posted journal lines",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != FormatText && opts.format != FormatJSON {
				return fmt.Errorf("unknown format %q (want text or json)", opts.format)
			}
			log, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.repo, "repo", ".", "books directory")
	pf.StringVar(&opts.format, "format", FormatText, "output format: text or json")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(opts),
		newLedgerCommand(opts),
		newCashbookCommand(opts),
		newTrialBalanceCommand(opts),
		newServeCommand(opts),
		newDBCommand(opts),
	)

	return rootCmd
}

// ExitCode maps an Execute error onto a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUnbalanced):
		return 2
	default:
		return 1
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
