package journal

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	EntryNumber string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryNumber, e.Description)
}

// ValidateLegs checks the legs read from one month's journal.csv before they
// are handed to a projection. Entry balance is not checked here; that is the
// posting workflow's job and the trial balance reports it.
func ValidateLegs(legs []model.Leg, year, month int) []ValidationError {
	var errs []ValidationError

	headers := make(map[int]model.Entry)
	lineIDs := make(map[int]bool)

	for _, leg := range legs {
		num := leg.Entry.Number

		// Invariant 1: Status is known.
		if !leg.Entry.Status.Valid() {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryNumber: num,
				Description: fmt.Sprintf("unknown status %q", leg.Entry.Status),
			})
		}

		// Invariant 2: Amounts are non-negative.
		if leg.Line.Debit.IsNegative() || leg.Line.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   2,
				EntryNumber: num,
				Description: fmt.Sprintf("line %d has a negative amount (debit=%s, credit=%s)",
					leg.Line.ID, leg.Line.Debit.String(), leg.Line.Credit.String()),
			})
		}

		// Invariant 3: Line numbers are positive.
		if leg.Line.LineNumber <= 0 {
			errs = append(errs, ValidationError{
				Invariant:   3,
				EntryNumber: num,
				Description: fmt.Sprintf("line %d has line_number %d", leg.Line.ID, leg.Line.LineNumber),
			})
		}

		// Invariant 4: Every line of an entry repeats the same header.
		if prev, seen := headers[leg.Entry.ID]; seen {
			if prev.Number != num || !prev.Date.Equal(leg.Entry.Date) || prev.Status != leg.Entry.Status {
				errs = append(errs, ValidationError{
					Invariant:   4,
					EntryNumber: num,
					Description: fmt.Sprintf("entry %d header differs between lines", leg.Entry.ID),
				})
			}
		} else {
			headers[leg.Entry.ID] = leg.Entry
		}

		// Invariant 5: Date falls in the file's month.
		if leg.Entry.Date.Year() != year || int(leg.Entry.Date.Month()) != month {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryNumber: num,
				Description: fmt.Sprintf("date %s not in %04d-%02d",
					leg.Entry.Date.Format(model.DateFormat), year, month),
			})
		}

		// Invariant 6: Line IDs are unique.
		if lineIDs[leg.Line.ID] {
			errs = append(errs, ValidationError{
				Invariant:   6,
				EntryNumber: num,
				Description: fmt.Sprintf("duplicate line_id %d", leg.Line.ID),
			})
		}
		lineIDs[leg.Line.ID] = true
	}

	return errs
}
