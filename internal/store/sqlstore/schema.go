package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Migrations returns the schema statements, one statement per string.
// Dates and amounts are TEXT so both dialects compare and parse them the
// same way: dates as YYYY-MM-DD, amounts as exact decimals.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id     INTEGER PRIMARY KEY,
			code   TEXT NOT NULL UNIQUE,
			name   TEXT NOT NULL,
			type   TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS journal_entries (
			id         INTEGER PRIMARY KEY,
			number     TEXT NOT NULL,
			date       TEXT NOT NULL,
			status     TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_status_date ON journal_entries(status, date)`,

		`CREATE TABLE IF NOT EXISTS journal_lines (
			id          INTEGER PRIMARY KEY,
			entry_id    INTEGER NOT NULL REFERENCES journal_entries(id),
			account_id  INTEGER NOT NULL,
			line_number INTEGER NOT NULL,
			debit       TEXT NOT NULL DEFAULT '0',
			credit      TEXT NOT NULL DEFAULT '0',
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_entry ON journal_lines(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account ON journal_lines(account_id)`,
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range Migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	s.log.Info("schema migrated")
	return nil
}

// dialect knows how a driver spells bind parameters.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites ? placeholders into the dialect's form. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
