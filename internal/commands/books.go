package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/cache"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/metrics"
	"github.com/cleared-dev/tally/internal/store/sqlstore"
)

// source is what a configured storage driver provides.
type source interface {
	balance.LineSource
	balance.AccountLoader
	cache.Snapshotter
}

// books is an opened books directory: its config, the configured line
// source, and the reporter the subcommands read from.
type books struct {
	root     string
	cfg      *config.Config
	source   source
	reporter balance.Reporter
	registry *prometheus.Registry
	log      *zap.Logger

	closers []func() error
}

// openBooks loads config from the books directory and wires the storage
// driver, engine and cache it names.
func openBooks(ctx context.Context, opts *options) (*books, error) {
	root, err := opts.root()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDir(root)
	if err != nil {
		return nil, err
	}
	tol, err := cfg.Tolerance()
	if err != nil {
		return nil, err
	}

	b := &books{
		root:     root,
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		log:      opts.log,
	}
	m := metrics.New(b.registry)

	switch cfg.Storage.Driver {
	case config.DriverCSV:
		b.source = journal.NewStore(root, b.log)
	default:
		st, err := openSQL(ctx, b.root, cfg, b.log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, st.Close)
		b.source = st
	}

	engine := balance.NewEngine(b.source, b.source,
		balance.WithLogger(b.log),
		balance.WithMetrics(m),
		balance.WithTolerance(tol),
	)

	var store cache.Store
	switch cfg.Cache.Driver {
	case config.CacheMemory:
		store = cache.NewMemory()
	case config.CacheRedis:
		r := cache.DialRedis(cfg.Cache.Addr, cfg.Cache.Password)
		b.closers = append(b.closers, r.Close)
		if err := r.Ping(ctx); err != nil {
			// The cache is optional; every lookup will fall through.
			b.log.Warn("redis unreachable; projections will be recomputed",
				zap.String("addr", cfg.Cache.Addr), zap.Error(err))
		}
		store = r
	}
	if store == nil {
		b.reporter = engine
	} else {
		b.reporter = cache.NewProjections(engine, store, b.source,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithLogger(b.log),
			cache.WithMetrics(m),
		)
	}

	b.log.Debug("books opened",
		zap.String("root", root),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("cache", cfg.Cache.Driver),
	)
	return b, nil
}

// Close releases database and cache connections.
func (b *books) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// snapshot returns the source's snapshot version, or "" if it cannot be read.
func (b *books) snapshot(ctx context.Context) string {
	v, err := b.source.SnapshotVersion(ctx)
	if err != nil {
		b.log.Warn("reading snapshot version", zap.Error(err))
		return ""
	}
	return v
}

// openSQL opens the configured SQL store. Relative SQLite paths are resolved
// against the books directory.
func openSQL(ctx context.Context, root string, cfg *config.Config, log *zap.Logger) (*sqlstore.Store, error) {
	dsn := cfg.Storage.DSN
	if cfg.Storage.Driver == config.DriverSQLite && !filepath.IsAbs(dsn) && !strings.Contains(dsn, ":") {
		dsn = filepath.Join(root, dsn)
	}
	st, err := sqlstore.Open(cfg.Storage.Driver, dsn, log)
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Storage.Driver, err)
	}
	return st, nil
}
