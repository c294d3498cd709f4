package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/model"
)

// withBooks opens the books for the duration of fn.
func withBooks(cmd *cobra.Command, opts *options, fn func(ctx context.Context, b *books, p *printer) error) error {
	ctx := cmd.Context()
	b, err := openBooks(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			b.log.Warn("closing books", zap.Error(err))
		}
	}()
	return fn(ctx, b, newPrinter(cmd.OutOrStdout(), opts.format, b.cfg.Business.Currency))
}

// period holds --from/--to flags. An empty --to means today and an empty
// --from the first day of --to's year.
type period struct {
	from, to string
}

func (p *period) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.from, "from", "", "first day, YYYY-MM-DD (default: January 1 of --to)")
	cmd.Flags().StringVar(&p.to, "to", "", "last day, YYYY-MM-DD (default: today)")
}

func (p *period) parse(now time.Time) (time.Time, time.Time, error) {
	end, err := dateFlag("to", p.to, model.Day(now))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := dateFlag("from", p.from, time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func dateFlag(name, v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	t, err := model.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// accountID resolves an account code against the directory.
func accountID(ctx context.Context, r balance.Reporter, code string) (int, error) {
	dir, err := r.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	acct, ok := dir.ByCode(code)
	if !ok {
		return 0, fmt.Errorf("account %s not found", code)
	}
	return acct.ID, nil
}

func newAccountsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List active accounts in code order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBooks(cmd, opts, func(ctx context.Context, b *books, p *printer) error {
				dir, err := b.reporter.Accounts(ctx)
				if err != nil {
					return err
				}
				if p.format == FormatJSON {
					return p.json(dir.Sorted())
				}
				return p.accounts(dir.Sorted())
			})
		},
	}
}

func newLedgerCommand(opts *options) *cobra.Command {
	var (
		per  period
		code string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show an account ledger with opening and running balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" && !all {
				return fmt.Errorf("either --account or --all is required")
			}
			start, end, err := per.parse(time.Now())
			if err != nil {
				return err
			}
			return withBooks(cmd, opts, func(ctx context.Context, b *books, p *printer) error {
				if all {
					gl, err := b.reporter.GeneralLedger(ctx, start, end)
					if err != nil {
						return err
					}
					if p.format == FormatJSON {
						return p.json(gl)
					}
					return p.generalLedger(gl)
				}

				id, err := accountID(ctx, b.reporter, code)
				if err != nil {
					return err
				}
				r, err := b.reporter.Ledger(ctx, id, start, end)
				if err != nil {
					return err
				}
				if p.format == FormatJSON {
					return p.json(r)
				}
				return p.ledger(r)
			})
		},
	}

	per.register(cmd)
	cmd.Flags().StringVar(&code, "account", "", "account code")
	cmd.Flags().BoolVar(&all, "all", false, "every account with activity (general ledger)")
	cmd.MarkFlagsMutuallyExclusive("account", "all")

	return cmd
}

func newCashbookCommand(opts *options) *cobra.Command {
	var (
		per    period
		code   string
		search string
	)

	cmd := &cobra.Command{
		Use:   "cashbook",
		Short: "List posted lines in order with a combined running total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := per.parse(time.Now())
			if err != nil {
				return err
			}
			return withBooks(cmd, opts, func(ctx context.Context, b *books, p *printer) error {
				q := balance.CashbookQuery{Start: start, End: end}
				if code != "" {
					if q.AccountID, err = accountID(ctx, b.reporter, code); err != nil {
						return err
					}
				}
				cb, err := b.reporter.Cashbook(ctx, q)
				if err != nil {
					return err
				}
				rows := cb.Filter(balance.CashbookView{Query: search})
				if p.format == FormatJSON {
					out := *cb
					out.Rows = rows
					return p.json(&out)
				}
				return p.cashbook(cb, rows)
			})
		},
	}

	per.register(cmd)
	cmd.Flags().StringVar(&code, "account", "", "only lines posted to this account code")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive filter on code, name, description or entry number")

	return cmd
}

func newTrialBalanceCommand(opts *options) *cobra.Command {
	var (
		asOf     string
		noRecord bool
	)

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Show the trial balance and record the reconciliation result",
		Long: "Show the trial balance as of a date. Unless --no-record is set, the result is\n" +
			"appended to logs/reconciliation-log.csv. Exits with status 2 when the debit and\n" +
			"credit columns do not reconcile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := dateFlag("as-of", asOf, model.Day(time.Now()))
			if err != nil {
				return err
			}
			return withBooks(cmd, opts, func(ctx context.Context, b *books, p *printer) error {
				tb, err := b.reporter.TrialBalance(ctx, at)
				if err != nil {
					return err
				}
				if p.format == FormatJSON {
					err = p.json(tb)
				} else {
					err = p.trialBalance(tb)
				}
				if err != nil {
					return err
				}

				if !noRecord {
					if err := record(ctx, b, tb); err != nil {
						return err
					}
				}
				if !tb.Balanced() {
					return fmt.Errorf("%w: difference %s as of %s", ErrUnbalanced,
						tb.Difference.String(), tb.AsOf.Format(model.DateFormat))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "as-of day, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not append to the reconciliation log")

	return cmd
}

// record appends the trial balance to the reconciliation log and, when the
// books are a git repository with auto_commit set, commits it.
func record(ctx context.Context, b *books, tb *balance.TrialBalance) error {
	entry := auditlog.FromTrialBalance(tb, b.snapshot(ctx), time.Now())
	if err := auditlog.Append(b.root, []auditlog.Entry{entry}); err != nil {
		return fmt.Errorf("writing reconciliation log: %w", err)
	}
	b.log.Info("reconciliation recorded",
		zap.String("run_id", entry.RunID.String()),
		zap.String("status", string(entry.Status)),
	)

	if !b.cfg.Git.AutoCommit || !gitops.IsRepo(b.root) {
		return nil
	}
	msg := fmt.Sprintf("reconcile: trial balance as of %s (%s)", tb.AsOf.Format(model.DateFormat), tb.Status)
	hash, err := gitops.CommitAll(b.root, msg, b.cfg.Git.AuthorName, b.cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("committing reconciliation log: %w", err)
	}
	b.log.Debug("committed", zap.String("hash", hash))
	return nil
}
