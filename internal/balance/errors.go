package balance

import (
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrInvalidDateRange is returned when a start date is after its end date.
var ErrInvalidDateRange = errors.New("invalid date range")

// WarningKind classifies a non-fatal anomaly found while building a projection.
type WarningKind string

const (
	WarningAccountNotFound WarningKind = "account_not_found"
)

// Warning is attached to a projection result instead of failing it.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	AccountID   int         `json:"account_id"`
	EntryNumber string      `json:"entry_number,omitempty"`
	LineNumber  int         `json:"line_number,omitempty"`
	Message     string      `json:"message"`
}

func accountNotFound(leg model.Leg) Warning {
	return Warning{
		Kind:        WarningAccountNotFound,
		AccountID:   leg.Line.AccountID,
		EntryNumber: leg.Entry.Number,
		LineNumber:  leg.Line.LineNumber,
		Message: fmt.Sprintf("line %d of entry %s references unknown account %d; excluded",
			leg.Line.LineNumber, leg.Entry.Number, leg.Line.AccountID),
	}
}

func validateRange(start, end time.Time) error {
	if model.Day(start).After(model.Day(end)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}
	return nil
}
