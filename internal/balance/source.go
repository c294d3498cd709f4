package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrSourceUnavailable marks failures of a LineSource or AccountLoader:
// I/O, timeouts, and corrupt data. Projections return such errors unchanged.
var ErrSourceUnavailable = errors.New("line source unavailable")

// Unavailable wraps err so that errors.Is(err, ErrSourceUnavailable) holds.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}

// Filter selects legs from a LineSource. Date bounds are inclusive calendar
// days; a zero bound is open.
type Filter struct {
	AccountID int // 0 = every account
	From      time.Time
	To        time.Time
	Status    model.EntryStatus
}

// Match reports whether leg passes the filter. Sources may use it after a
// coarse read.
func (f Filter) Match(leg model.Leg) bool {
	if f.Status != "" && leg.Entry.Status != f.Status {
		return false
	}
	if f.AccountID != 0 && leg.Line.AccountID != f.AccountID {
		return false
	}
	d := model.Day(leg.Entry.Date)
	if !f.From.IsZero() && d.Before(model.Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(model.Day(f.To)) {
		return false
	}
	return true
}

// LineSource supplies journal lines matching a filter. Implementations must
// return only legs whose entry has Filter.Status.
type LineSource interface {
	Fetch(ctx context.Context, f Filter) ([]model.Leg, error)
}

// AccountLoader loads the chart of accounts.
type AccountLoader interface {
	LoadAccounts(ctx context.Context) ([]model.Account, error)
}
