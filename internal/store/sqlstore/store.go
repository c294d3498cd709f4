// Package sqlstore reads accounts and journal lines from SQLite or Postgres
// through database/sql.
package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/model"
)

// Store is a balance.LineSource and balance.AccountLoader over SQL.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

// Open connects to a database. driver is "sqlite" or "postgres".
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	var (
		name string
		d    dialect
	)
	switch driver {
	case "sqlite":
		name, d = "sqlite", dialectSQLite
	case "postgres":
		name, d = "pgx", dialectPostgres
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	if d == dialectSQLite {
		// SQLite allows one writer; keeping a single connection also keeps
		// :memory: databases alive across queries.
		db.SetMaxOpenConns(1)
	}
	return newStore(db, d, log), nil
}

func newStore(db *sql.DB, d dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, dialect: d, log: log}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return balance.Unavailable(err)
	}
	return nil
}

// LoadAccounts returns every account, active or not, ordered by code.
func (s *Store) LoadAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, type, active FROM accounts ORDER BY code`)
	if err != nil {
		return nil, balance.Unavailable(fmt.Errorf("querying accounts: %w", err))
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var (
			a      model.Account
			typ    string
			active int
		)
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &typ, &active); err != nil {
			return nil, balance.Unavailable(fmt.Errorf("scanning account: %w", err))
		}
		a.Type = model.AccountType(typ)
		if !a.Type.Valid() {
			return nil, balance.Unavailable(fmt.Errorf("account %d: unknown account_type %q", a.ID, typ))
		}
		a.Active = active != 0
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, balance.Unavailable(fmt.Errorf("reading accounts: %w", err))
	}
	return out, nil
}

const fetchQuery = `SELECT e.id, e.number, e.date, e.status,
	l.id, l.line_number, l.account_id, l.description, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id`

// Fetch returns the legs matching f, ordered by date, entry number and line.
func (s *Store) Fetch(ctx context.Context, f balance.Filter) ([]model.Leg, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, string(f.Status))
	}
	if f.AccountID != 0 {
		where = append(where, "l.account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.From.IsZero() {
		where = append(where, "e.date >= ?")
		args = append(args, model.Day(f.From).Format(model.DateFormat))
	}
	if !f.To.IsZero() {
		where = append(where, "e.date <= ?")
		args = append(args, model.Day(f.To).Format(model.DateFormat))
	}

	query := fetchQuery
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY e.date, e.number, l.line_number, l.id"

	started := time.Now()
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, balance.Unavailable(ctx.Err())
		}
		return nil, balance.Unavailable(fmt.Errorf("querying lines: %w", err))
	}
	defer rows.Close()

	var out []model.Leg
	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return nil, balance.Unavailable(err)
		}
		out = append(out, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, balance.Unavailable(fmt.Errorf("reading lines: %w", err))
	}

	s.log.Debug("fetched journal lines",
		zap.Int("account_id", f.AccountID),
		zap.Int("legs", len(out)),
		zap.Duration("elapsed", time.Since(started)))
	return out, nil
}

func scanLeg(rows *sql.Rows) (model.Leg, error) {
	var (
		leg           model.Leg
		day, status   string
		debit, credit string
	)
	err := rows.Scan(
		&leg.Entry.ID, &leg.Entry.Number, &day, &status,
		&leg.Line.ID, &leg.Line.LineNumber, &leg.Line.AccountID, &leg.Line.Description,
		&debit, &credit,
	)
	if err != nil {
		return model.Leg{}, fmt.Errorf("scanning line: %w", err)
	}

	leg.Entry.Date, err = model.ParseDate(day)
	if err != nil {
		return model.Leg{}, fmt.Errorf("entry %d: %w", leg.Entry.ID, err)
	}
	leg.Entry.Status = model.EntryStatus(status)
	if !leg.Entry.Status.Valid() {
		return model.Leg{}, fmt.Errorf("entry %d: unknown status %q", leg.Entry.ID, status)
	}
	leg.Line.EntryID = leg.Entry.ID

	if leg.Line.Debit, err = parseAmount(debit); err != nil {
		return model.Leg{}, fmt.Errorf("line %d debit: %w", leg.Line.ID, err)
	}
	if leg.Line.Credit, err = parseAmount(credit); err != nil {
		return model.Leg{}, fmt.Errorf("line %d credit: %w", leg.Line.ID, err)
	}
	if leg.Line.LineNumber <= 0 {
		return model.Leg{}, fmt.Errorf("line %d has line_number %d", leg.Line.ID, leg.Line.LineNumber)
	}
	return leg, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}

// SnapshotVersion summarizes the row counts, highest IDs and latest entry
// update. Any import or edit through the schema changes it.
func (s *Store) SnapshotVersion(ctx context.Context) (string, error) {
	const q = `SELECT
	(SELECT COUNT(*) FROM accounts),
	(SELECT COUNT(*) FROM journal_entries),
	(SELECT COUNT(*) FROM journal_lines),
	(SELECT COALESCE(MAX(id), 0) FROM journal_lines),
	(SELECT COALESCE(MAX(updated_at), '') FROM journal_entries)`

	var (
		accts, entries, lines, maxLine int64
		updated                        string
	)
	if err := s.db.QueryRowContext(ctx, q).Scan(&accts, &entries, &lines, &maxLine, &updated); err != nil {
		return "", balance.Unavailable(fmt.Errorf("reading snapshot: %w", err))
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d/%d/%d/%d/%s", accts, entries, lines, maxLine, updated)))
	return "sql-" + hex.EncodeToString(sum[:])[:16], nil
}
