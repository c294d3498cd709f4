package balance

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// CashbookQuery selects the period, and optionally one account, of a cashbook.
type CashbookQuery struct {
	Start     time.Time
	End       time.Time
	AccountID int // 0 = all accounts
}

// CashbookRow is one line of the cashbook.
//
// CombinedBalance is a running sum of every row's signed delta, where each
// row is signed by its own account's normal side. Across accounts of
// different types it is not the balance of anything; it is kept only as a
// combined running total for the period log.
type CashbookRow struct {
	Date            time.Time       `json:"date"`
	EntryNumber     string          `json:"entry_number"`
	LineNumber      int             `json:"line_number"`
	AccountID       int             `json:"account_id"`
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	Description     string          `json:"description"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	CombinedBalance decimal.Decimal `json:"combined_balance"`
}

// Cashbook is the chronological log of posted lines in a period.
type Cashbook struct {
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	AccountID   int             `json:"account_id,omitempty"`
	Rows        []CashbookRow   `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Warnings    []Warning       `json:"warnings,omitempty"`
}

// Cashbook returns every posted line in [q.Start, q.End] in posting order
// with a combined running total seeded at zero. There is no carry-forward
// from earlier periods.
func (e *Engine) Cashbook(ctx context.Context, q CashbookQuery) (_ *Cashbook, err error) {
	defer func(t time.Time) { e.metrics.ObserveQuery(ProjectionCashbook, t, err) }(time.Now())

	if err := validateRange(q.Start, q.End); err != nil {
		return nil, err
	}
	start, end := model.Day(q.Start), model.Day(q.End)

	dir, err := e.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	legs, err := e.fetch(ctx, Filter{AccountID: q.AccountID, From: start, To: end})
	if err != nil {
		return nil, err
	}
	legs, warnings := e.known(dir, legs)

	cb := &Cashbook{
		Start:     start,
		End:       end,
		AccountID: q.AccountID,
		Rows:      make([]CashbookRow, 0, len(legs)),
		Warnings:  warnings,
	}
	for _, step := range Accumulate(decimal.Zero, legs, dir.Sign) {
		acct, _ := dir.Get(step.Leg.Line.AccountID)
		cb.Rows = append(cb.Rows, CashbookRow{
			Date:            step.Leg.Entry.Date,
			EntryNumber:     step.Leg.Entry.Number,
			LineNumber:      step.Leg.Line.LineNumber,
			AccountID:       acct.ID,
			AccountCode:     acct.Code,
			AccountName:     acct.Name,
			Description:     step.Leg.Line.Description,
			Debit:           step.Leg.Line.Debit,
			Credit:          step.Leg.Line.Credit,
			CombinedBalance: step.Balance,
		})
	}
	cb.TotalDebit, cb.TotalCredit = Totals(legs)
	return cb, nil
}

// CashbookView narrows an already-built cashbook without another fetch.
type CashbookView struct {
	Query     string // case-insensitive substring of code, name, description, or entry number
	AccountID int    // exact match; 0 = any
}

// Filter returns the rows matching v. Rows keep the combined balance they had
// in the full cashbook.
func (c *Cashbook) Filter(v CashbookView) []CashbookRow {
	q := strings.ToLower(strings.TrimSpace(v.Query))
	out := make([]CashbookRow, 0, len(c.Rows))
	for _, row := range c.Rows {
		if v.AccountID != 0 && row.AccountID != v.AccountID {
			continue
		}
		if q != "" && !row.matches(q) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (r CashbookRow) matches(q string) bool {
	for _, field := range []string{r.AccountCode, r.AccountName, r.Description, r.EntryNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
