package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/model"
)

// Import replaces the database contents with a copy of existing books.
// Everything happens in one transaction, so readers see either the old or
// the new snapshot.
func (s *Store) Import(ctx context.Context, accts []model.Account, legs []model.Leg) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"journal_lines", "journal_entries", "accounts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, a := range accts {
		active := 0
		if a.Active {
			active = 1
		}
		if err := s.exec(ctx, tx, `INSERT INTO accounts (id, code, name, type, active) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Code, a.Name, string(a.Type), active); err != nil {
			return fmt.Errorf("inserting account %s: %w", a.Code, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	seen := make(map[int]bool)
	for _, leg := range legs {
		if !seen[leg.Entry.ID] {
			seen[leg.Entry.ID] = true
			if err := s.exec(ctx, tx, `INSERT INTO journal_entries (id, number, date, status, updated_at) VALUES (?, ?, ?, ?, ?)`,
				leg.Entry.ID, leg.Entry.Number, leg.Entry.Date.Format(model.DateFormat), string(leg.Entry.Status), now); err != nil {
				return fmt.Errorf("inserting entry %s: %w", leg.Entry.Number, err)
			}
		}
		if err := s.exec(ctx, tx, `INSERT INTO journal_lines (id, entry_id, account_id, line_number, debit, credit, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			leg.Line.ID, leg.Entry.ID, leg.Line.AccountID, leg.Line.LineNumber,
			leg.Line.Debit.String(), leg.Line.Credit.String(), leg.Line.Description); err != nil {
			return fmt.Errorf("inserting line %d: %w", leg.Line.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	s.log.Info("imported books",
		zap.Int("accounts", len(accts)),
		zap.Int("entries", len(seen)),
		zap.Int("lines", len(legs)))
	return nil
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, s.dialect.rebind(query), args...)
	return err
}
