package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/tally/internal/model"
)

// LedgerRow is one period line of an account ledger.
type LedgerRow struct {
	Date        time.Time       `json:"date"`
	EntryNumber string          `json:"entry_number"`
	LineNumber  int             `json:"line_number"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// LedgerReport is the ledger of one account over [Start, End].
type LedgerReport struct {
	Account        model.Account   `json:"account"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Rows           []LedgerRow     `json:"rows"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Warnings       []Warning       `json:"warnings,omitempty"`
}

// Ledger returns the opening balance, period rows, and closing balance of one
// account. An accountID of 0 means no account was selected and yields an
// empty report.
func (e *Engine) Ledger(ctx context.Context, accountID int, start, end time.Time) (_ *LedgerReport, err error) {
	defer func(t time.Time) { e.metrics.ObserveQuery(ProjectionLedger, t, err) }(time.Now())

	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	start, end = model.Day(start), model.Day(end)

	if accountID == 0 {
		return emptyLedger(model.Account{}, start, end), nil
	}

	dir, err := e.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	acct, lerr := dir.Lookup(accountID)
	if lerr != nil {
		e.log.Warn("ledger requested for unknown account", zap.Int("account_id", accountID))
		e.metrics.Warnings(string(WarningAccountNotFound), 1)
		r := emptyLedger(model.Account{ID: accountID}, start, end)
		r.Warnings = []Warning{{
			Kind:      WarningAccountNotFound,
			AccountID: accountID,
			Message:   lerr.Error(),
		}}
		return r, nil
	}

	return e.ledger(ctx, acct, start, end)
}

func (e *Engine) ledger(ctx context.Context, acct model.Account, start, end time.Time) (*LedgerReport, error) {
	sign := FixedSign(acct.NormalSide())

	before, err := e.fetch(ctx, Filter{AccountID: acct.ID, To: start.AddDate(0, 0, -1)})
	if err != nil {
		return nil, err
	}
	period, err := e.fetch(ctx, Filter{AccountID: acct.ID, From: start, To: end})
	if err != nil {
		return nil, err
	}

	r := emptyLedger(acct, start, end)
	r.OpeningBalance = Net(decimal.Zero, before, sign)
	r.ClosingBalance = r.OpeningBalance

	for _, step := range Accumulate(r.OpeningBalance, period, sign) {
		r.Rows = append(r.Rows, LedgerRow{
			Date:        step.Leg.Entry.Date,
			EntryNumber: step.Leg.Entry.Number,
			LineNumber:  step.Leg.Line.LineNumber,
			Description: step.Leg.Line.Description,
			Debit:       step.Leg.Line.Debit,
			Credit:      step.Leg.Line.Credit,
			Balance:     step.Balance,
		})
		r.ClosingBalance = step.Balance
	}
	r.TotalDebit, r.TotalCredit = Totals(period)
	return r, nil
}

func emptyLedger(acct model.Account, start, end time.Time) *LedgerReport {
	return &LedgerReport{
		Account:        acct,
		Start:          start,
		End:            end,
		OpeningBalance: decimal.Zero,
		Rows:           []LedgerRow{},
		ClosingBalance: decimal.Zero,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}
}

// GeneralLedger is the ledger of every account with activity.
type GeneralLedger struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Ledgers  []*LedgerReport `json:"ledgers"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// GeneralLedger builds Ledger for every account in the directory, fetching
// accounts concurrently. Accounts with a zero opening balance and no period
// rows are left out. Ledgers come back in account code order.
func (e *Engine) GeneralLedger(ctx context.Context, start, end time.Time) (_ *GeneralLedger, err error) {
	defer func(t time.Time) { e.metrics.ObserveQuery(ProjectionGeneralLedger, t, err) }(time.Now())

	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	start, end = model.Day(start), model.Day(end)

	dir, err := e.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	accts := dir.Sorted()
	reports := make([]*LedgerReport, len(accts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, acct := range accts {
		g.Go(func() error {
			r, err := e.ledger(gctx, acct, start, end)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gl := &GeneralLedger{Start: start, End: end, Ledgers: []*LedgerReport{}}
	for _, r := range reports {
		if len(r.Rows) == 0 && r.OpeningBalance.IsZero() {
			continue
		}
		gl.Ledgers = append(gl.Ledgers, r)
	}

	// Per-account fetches never see lines for unknown accounts, so look for
	// them once over the whole window.
	all, err := e.fetch(ctx, Filter{To: end})
	if err != nil {
		return nil, err
	}
	_, gl.Warnings = e.known(dir, all)
	return gl, nil
}
