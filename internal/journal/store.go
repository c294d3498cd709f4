package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/model"
)

// FileName is the per-month journal file name.
const FileName = "journal.csv"

// Store reads a books directory laid out as YYYY/MM/journal.csv plus
// accounts/chart-of-accounts.csv. It implements balance.LineSource and
// balance.AccountLoader. Every failure it returns wraps
// balance.ErrSourceUnavailable.
type Store struct {
	root string
	log  *zap.Logger
}

// NewStore creates a Store rooted at a books directory. A nil logger
// discards output.
func NewStore(root string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: root, log: log}
}

// Root returns the books directory.
func (s *Store) Root() string {
	return s.root
}

// LoadAccounts reads the chart of accounts.
func (s *Store) LoadAccounts(ctx context.Context) ([]model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, balance.Unavailable(err)
	}
	accts, err := accounts.Load(s.root)
	if err != nil {
		return nil, balance.Unavailable(err)
	}
	return accts, nil
}

// Fetch reads every month file overlapping the filter's date range and
// returns the matching legs. A month that fails validation fails the whole
// fetch.
func (s *Store) Fetch(ctx context.Context, f balance.Filter) ([]model.Leg, error) {
	months, err := s.months()
	if err != nil {
		return nil, balance.Unavailable(err)
	}

	var out []model.Leg
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return nil, balance.Unavailable(err)
		}
		if !m.overlaps(f.From, f.To) {
			continue
		}

		legs, err := s.ReadMonth(m.year, m.month)
		if err != nil {
			return nil, balance.Unavailable(err)
		}
		if verrs := ValidateLegs(legs, m.year, m.month); len(verrs) > 0 {
			return nil, balance.Unavailable(validationFailed(m.path, verrs))
		}
		for _, leg := range legs {
			if f.Match(leg) {
				out = append(out, leg)
			}
		}
	}

	s.log.Debug("fetched journal lines",
		zap.Int("account_id", f.AccountID),
		zap.Int("months", len(months)),
		zap.Int("legs", len(out)))
	return out, nil
}

// ReadMonth reads all legs for a given year/month. A missing file is an
// empty month.
func (s *Store) ReadMonth(year, month int) ([]model.Leg, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	legs, err := ReadLegs(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return legs, nil
}

// WriteMonth replaces one month's journal file. It exists for fixtures and
// imports; projections never write.
func (s *Store) WriteMonth(year, month int, legs []model.Leg) error {
	path := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating journal %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteLegs(f, legs); err != nil {
		return fmt.Errorf("writing journal %s: %w", path, err)
	}
	return nil
}

// SnapshotVersion identifies the current state of the books. A clean git
// checkout is identified by its HEAD commit; anything else by a hash over the
// paths, sizes and modification times of the chart and journal files.
func (s *Store) SnapshotVersion(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", balance.Unavailable(err)
	}
	if gitops.IsRepo(s.root) {
		clean, err := gitops.IsClean(s.root)
		if err == nil && clean {
			head, err := gitops.Head(s.root)
			if err == nil {
				return "git-" + head, nil
			}
		}
	}

	months, err := s.months()
	if err != nil {
		return "", balance.Unavailable(err)
	}
	paths := []string{filepath.Join(s.root, accounts.ChartPath)}
	for _, m := range months {
		paths = append(paths, m.path)
	}

	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", balance.Unavailable(fmt.Errorf("stat %s: %w", p, err))
		}
		rel, _ := filepath.Rel(s.root, p)
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
	}
	return "fs-" + hex.EncodeToString(h.Sum(nil))[:16], nil
}

type monthFile struct {
	year, month int
	path        string
}

// overlaps reports whether any day of the month lies within [from, to].
// Zero bounds are open.
func (m monthFile) overlaps(from, to time.Time) bool {
	first := time.Date(m.year, time.Month(m.month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	if !from.IsZero() && last.Before(model.Day(from)) {
		return false
	}
	if !to.IsZero() && first.After(model.Day(to)) {
		return false
	}
	return true
}

// months lists the journal files present, oldest first.
func (s *Store) months() ([]monthFile, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", FileName))
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	sort.Strings(matches)

	var out []monthFile
	for _, p := range matches {
		monthDir := filepath.Dir(p)
		year, _ := strconv.Atoi(filepath.Base(filepath.Dir(monthDir)))
		month, _ := strconv.Atoi(filepath.Base(monthDir))
		if month < 1 || month > 12 {
			s.log.Warn("ignoring journal outside a month directory", zap.String("path", p))
			continue
		}
		out = append(out, monthFile{year: year, month: month, path: p})
	}
	return out, nil
}

func (s *Store) monthPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), FileName)
}

func validationFailed(path string, verrs []ValidationError) error {
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validating %s: %s", path, strings.Join(msgs, "; "))
}
