package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/model"
)

// ReconciliationStatus reports whether the trial balance columns agree.
type ReconciliationStatus string

const (
	StatusBalanced   ReconciliationStatus = "balanced"
	StatusUnbalanced ReconciliationStatus = "unbalanced"
)

// TrialBalanceRow is one account's line in the trial balance.
type TrialBalanceRow struct {
	Account      model.Account   `json:"account"`
	DebitSum     decimal.Decimal `json:"debit_sum"`
	CreditSum    decimal.Decimal `json:"credit_sum"`
	Balance      decimal.Decimal `json:"balance"` // signed by normal side
	DebitColumn  decimal.Decimal `json:"debit_column"`
	CreditColumn decimal.Decimal `json:"credit_column"`
}

// TrialBalance is a point-in-time snapshot of every non-dormant account.
// An unbalanced status means the posted ledger is corrupt; it is a result,
// not an error, and callers must surface it.
type TrialBalance struct {
	AsOf              time.Time            `json:"as_of"`
	Rows              []TrialBalanceRow    `json:"rows"`
	TotalDebitColumn  decimal.Decimal      `json:"total_debit_column"`
	TotalCreditColumn decimal.Decimal      `json:"total_credit_column"`
	Difference        decimal.Decimal      `json:"difference"` // debit column minus credit column
	Tolerance         decimal.Decimal      `json:"tolerance"`
	Status            ReconciliationStatus `json:"status"`
	Warnings          []Warning            `json:"warnings,omitempty"`
}

// Balanced reports whether Status is StatusBalanced.
func (tb *TrialBalance) Balanced() bool {
	return tb.Status == StatusBalanced
}

// TrialBalance aggregates every posted line dated on or before asOf. A zero
// asOf is rejected with ErrInvalidDateRange.
func (e *Engine) TrialBalance(ctx context.Context, asOf time.Time) (_ *TrialBalance, err error) {
	defer func(t time.Time) { e.metrics.ObserveQuery(ProjectionTrialBalance, t, err) }(time.Now())

	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: as-of date is required", ErrInvalidDateRange)
	}
	asOf = model.Day(asOf)

	dir, err := e.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	legs, err := e.fetch(ctx, Filter{To: asOf})
	if err != nil {
		return nil, err
	}
	legs, warnings := e.known(dir, legs)

	type sums struct{ debit, credit decimal.Decimal }
	byAccount := make(map[int]*sums, dir.Len())
	for _, acct := range dir.Sorted() {
		byAccount[acct.ID] = &sums{}
	}
	for _, leg := range legs {
		s := byAccount[leg.Line.AccountID]
		s.debit = s.debit.Add(leg.Line.Debit)
		s.credit = s.credit.Add(leg.Line.Credit)
	}

	tb := &TrialBalance{
		AsOf:              asOf,
		Rows:              []TrialBalanceRow{},
		TotalDebitColumn:  decimal.Zero,
		TotalCreditColumn: decimal.Zero,
		Tolerance:         e.tolerance,
		Warnings:          warnings,
	}

	// dir.Sorted is already in code order.
	for _, acct := range dir.Sorted() {
		s := byAccount[acct.ID]
		row := TrialBalanceRow{
			Account:      acct,
			DebitSum:     s.debit,
			CreditSum:    s.credit,
			Balance:      s.debit.Sub(s.credit).Mul(decimal.NewFromInt(int64(acct.NormalSide().Sign()))),
			DebitColumn:  decimal.Zero,
			CreditColumn: decimal.Zero,
		}
		if row.DebitSum.IsZero() && row.CreditSum.IsZero() && row.Balance.IsZero() {
			continue
		}
		splitColumns(&row)
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebitColumn = tb.TotalDebitColumn.Add(row.DebitColumn)
		tb.TotalCreditColumn = tb.TotalCreditColumn.Add(row.CreditColumn)
	}

	tb.Difference = tb.TotalDebitColumn.Sub(tb.TotalCreditColumn)
	// Exact equality always reconciles, even with a zero tolerance.
	if tb.Difference.IsZero() || tb.Difference.Abs().LessThan(e.tolerance) {
		tb.Status = StatusBalanced
	} else {
		tb.Status = StatusUnbalanced
		e.metrics.Unbalanced()
		e.log.Warn("trial balance does not reconcile",
			zap.String("as_of", asOf.Format(model.DateFormat)),
			zap.String("debit_column", tb.TotalDebitColumn.StringFixed(2)),
			zap.String("credit_column", tb.TotalCreditColumn.StringFixed(2)),
			zap.String("difference", tb.Difference.String()),
		)
	}
	return tb, nil
}

// splitColumns places a signed balance into the display columns. A positive
// balance sits on the account's normal side; a negative one moves, as an
// absolute value, to the other side.
func splitColumns(row *TrialBalanceRow) {
	normal := row.Account.NormalSide()
	onNormal := row.Balance.Sign() >= 0
	amount := row.Balance.Abs()

	if (normal == model.SideDebit) == onNormal {
		row.DebitColumn = amount
	} else {
		row.CreditColumn = amount
	}
}
