package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/metrics"
	"github.com/cleared-dev/tally/internal/model"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "tally"

// DefaultTTL bounds how long an entry outlives its snapshot.
const DefaultTTL = 10 * time.Minute

// Snapshotter identifies the current state of a line source. Two calls that
// return the same version must see the same lines and accounts.
type Snapshotter interface {
	SnapshotVersion(ctx context.Context) (string, error)
}

// Projections is a read-through cache in front of a balance.Reporter. Results
// are keyed by projection, parameters and snapshot version, so a change to
// the books is never served stale. Errors are not cached, and a failing cache
// store only costs a recomputation.
type Projections struct {
	next    balance.Reporter
	store   Store
	snap    Snapshotter
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures Projections.
type Option func(*Projections)

// WithTTL sets the entry lifetime. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(p *Projections) { p.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Projections) { p.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Projections) { p.metrics = m }
}

// NewProjections wraps next.
func NewProjections(next balance.Reporter, store Store, snap Snapshotter, opts ...Option) *Projections {
	p := &Projections{
		next:  next,
		store: store,
		snap:  snap,
		ttl:   DefaultTTL,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ balance.Reporter = (*Projections)(nil)

// Accounts is not cached; the directory is rebuilt per query.
func (p *Projections) Accounts(ctx context.Context) (*accounts.Directory, error) {
	return p.next.Accounts(ctx)
}

func (p *Projections) Ledger(ctx context.Context, accountID int, start, end time.Time) (*balance.LedgerReport, error) {
	params := fmt.Sprintf("%d:%s:%s", accountID, day(start), day(end))
	return cached(ctx, p, balance.ProjectionLedger, params, func() (*balance.LedgerReport, error) {
		return p.next.Ledger(ctx, accountID, start, end)
	})
}

func (p *Projections) GeneralLedger(ctx context.Context, start, end time.Time) (*balance.GeneralLedger, error) {
	params := day(start) + ":" + day(end)
	return cached(ctx, p, balance.ProjectionGeneralLedger, params, func() (*balance.GeneralLedger, error) {
		return p.next.GeneralLedger(ctx, start, end)
	})
}

func (p *Projections) Cashbook(ctx context.Context, q balance.CashbookQuery) (*balance.Cashbook, error) {
	params := fmt.Sprintf("%s:%s:%d", day(q.Start), day(q.End), q.AccountID)
	return cached(ctx, p, balance.ProjectionCashbook, params, func() (*balance.Cashbook, error) {
		return p.next.Cashbook(ctx, q)
	})
}

func (p *Projections) TrialBalance(ctx context.Context, asOf time.Time) (*balance.TrialBalance, error) {
	return cached(ctx, p, balance.ProjectionTrialBalance, day(asOf), func() (*balance.TrialBalance, error) {
		return p.next.TrialBalance(ctx, asOf)
	})
}

// Key builds the cache key for one projection query.
func Key(projection, params, version string) string {
	return strings.Join([]string{KeyPrefix, projection, params, version}, ":")
}

func cached[T any](ctx context.Context, p *Projections, projection, params string, compute func() (*T, error)) (*T, error) {
	version, err := p.snap.SnapshotVersion(ctx)
	if err != nil || version == "" {
		p.log.Debug("no snapshot version, bypassing cache",
			zap.String("projection", projection), zap.Error(err))
		p.metrics.CacheResult("bypass")
		return compute()
	}

	key := Key(projection, params, version)
	b, ok, err := p.store.Get(ctx, key)
	switch {
	case err != nil:
		p.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		p.metrics.CacheResult("error")
	case ok:
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			p.metrics.CacheResult("hit")
			p.recordHit(&v)
			return &v, nil
		}
		p.log.Warn("discarding undecodable cache entry", zap.String("key", key))
		p.metrics.CacheResult("miss")
	default:
		p.metrics.CacheResult("miss")
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	b, err = json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s for cache: %w", projection, err)
	}
	if err := p.store.Set(ctx, key, b, p.ttl); err != nil {
		p.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// recordHit re-emits the outcome counters the engine would have recorded had
// it computed v, so dashboards read the same with and without a cache.
func (p *Projections) recordHit(v any) {
	var warnings []balance.Warning
	switch r := v.(type) {
	case *balance.LedgerReport:
		warnings = r.Warnings
	case *balance.GeneralLedger:
		warnings = r.Warnings
	case *balance.Cashbook:
		warnings = r.Warnings
	case *balance.TrialBalance:
		warnings = r.Warnings
		if !r.Balanced() {
			p.metrics.Unbalanced()
		}
	}

	byKind := make(map[balance.WarningKind]int)
	for _, w := range warnings {
		byKind[w.Kind]++
	}
	for kind, n := range byKind {
		p.metrics.Warnings(string(kind), n)
	}
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.Day(t).Format(model.DateFormat)
}
