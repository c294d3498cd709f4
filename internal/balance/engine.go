// Package balance derives running balances, ledgers, cashbooks, and trial
// balances from posted journal lines.
//
// Every projection follows the same shape: load the account directory, fetch
// posted legs for the requested window, put them in posting order, and fold
// them with Accumulate. Lines that reference unknown accounts are dropped and
// reported as warnings rather than failing the query.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/metrics"
	"github.com/cleared-dev/tally/internal/model"
)

// Projection names, used for metrics and cache keys.
const (
	ProjectionLedger        = "ledger"
	ProjectionGeneralLedger = "general_ledger"
	ProjectionCashbook      = "cashbook"
	ProjectionTrialBalance  = "trial_balance"
)

// DefaultTolerance is used when no WithTolerance option is given. Callers
// with a configured currency pass one minor unit of it instead.
var DefaultTolerance = decimal.New(1, -2)

// Reporter is implemented by Engine and by anything that wraps it.
type Reporter interface {
	Accounts(ctx context.Context) (*accounts.Directory, error)
	Ledger(ctx context.Context, accountID int, start, end time.Time) (*LedgerReport, error)
	GeneralLedger(ctx context.Context, start, end time.Time) (*GeneralLedger, error)
	Cashbook(ctx context.Context, q CashbookQuery) (*Cashbook, error)
	TrialBalance(ctx context.Context, asOf time.Time) (*TrialBalance, error)
}

// Engine builds projections over a LineSource. It keeps no per-query state
// and is safe for concurrent use.
type Engine struct {
	source      LineSource
	loader      AccountLoader
	log         *zap.Logger
	metrics     *metrics.Metrics
	tolerance   decimal.Decimal
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTolerance sets the trial balance reconciliation tolerance.
func WithTolerance(t decimal.Decimal) Option {
	return func(e *Engine) { e.tolerance = t.Abs() }
}

// WithConcurrency bounds the number of per-account fetches GeneralLedger runs
// at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an Engine reading lines from source and accounts from loader.
func NewEngine(source LineSource, loader AccountLoader, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		loader:      loader,
		log:         zap.NewNop(),
		tolerance:   DefaultTolerance,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Accounts loads the account directory for one query.
func (e *Engine) Accounts(ctx context.Context) (*accounts.Directory, error) {
	accts, err := e.loader.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return accounts.NewDirectory(accts), nil
}

func (e *Engine) fetch(ctx context.Context, f Filter) ([]model.Leg, error) {
	f.Status = model.StatusPosted
	legs, err := e.source.Fetch(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetching lines: %w", err)
	}
	model.SortLegs(legs)
	return legs, nil
}

// known splits legs into those whose account is in dir and warnings for the
// rest.
func (e *Engine) known(dir *accounts.Directory, legs []model.Leg) ([]model.Leg, []Warning) {
	kept := legs[:0:0]
	var warnings []Warning
	for _, leg := range legs {
		if dir.Exists(leg.Line.AccountID) {
			kept = append(kept, leg)
			continue
		}
		w := accountNotFound(leg)
		e.log.Warn("excluding line with unknown account",
			zap.Int("account_id", leg.Line.AccountID),
			zap.String("entry_number", leg.Entry.Number),
			zap.Int("line_number", leg.Line.LineNumber),
			zap.Int("line_id", leg.Line.ID),
		)
		warnings = append(warnings, w)
	}
	e.metrics.Warnings(string(WarningAccountNotFound), len(warnings))
	return kept, warnings
}
