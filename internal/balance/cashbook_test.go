package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/tally/internal/model"
)

func TestCashbook_AllAccounts(t *testing.T) {
	src := books()
	e := NewEngine(src, src)

	cb, err := e.Cashbook(context.Background(), CashbookQuery{Start: date(2024, 1, 1), End: date(2024, 1, 31)})
	require.NoError(t, err)
	require.Len(t, cb.Rows, 6)

	var numbers []string
	var combined []string
	for _, r := range cb.Rows {
		numbers = append(numbers, r.EntryNumber)
		combined = append(combined, r.CombinedBalance.String())
	}
	assert.Equal(t, []string{"JE-001", "JE-001", "JE-002", "JE-002", "JE-003", "JE-003"}, numbers)
	assert.Equal(t, []string{"5000", "10000", "13500", "17000", "17004", "17008"}, combined)

	assert.Equal(t, "3010", cb.Rows[1].AccountCode)
	assert.Equal(t, "Owner's Equity", cb.Rows[1].AccountName)
	assert.True(t, cb.TotalDebit.Equal(dec("8504")))
	assert.True(t, cb.TotalCredit.Equal(dec("8504")))
}

func TestCashbook_SingleAccount(t *testing.T) {
	src := books()
	e := NewEngine(src, src)

	cb, err := e.Cashbook(context.Background(), CashbookQuery{
		Start:     date(2024, 1, 1),
		End:       date(2024, 2, 29),
		AccountID: acctCash,
	})
	require.NoError(t, err)
	require.Len(t, cb.Rows, 3)
	assert.True(t, cb.Rows[2].CombinedBalance.Equal(dec("8496")))
	assert.True(t, cb.TotalCredit.Equal(dec("4")))
}

func TestCashbook_NoCarryForward(t *testing.T) {
	src := books()
	e := NewEngine(src, src)

	cb, err := e.Cashbook(context.Background(), CashbookQuery{
		Start:     date(2024, 2, 1),
		End:       date(2024, 2, 29),
		AccountID: acctCash,
	})
	require.NoError(t, err)
	require.Len(t, cb.Rows, 2)
	assert.True(t, cb.Rows[0].CombinedBalance.Equal(dec("3500")), "seeded at zero, not at the January balance")
}

func TestCashbook_ExcludesUnknownAccounts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	src := books()
	src.post(model.StatusPosted, date(2024, 1, 3), "JE-900", dr(acctCash, "10"), cr(77, "10"))
	e := NewEngine(src, src, WithLogger(zap.New(core)))

	cb, err := e.Cashbook(context.Background(), CashbookQuery{Start: date(2024, 1, 1), End: date(2024, 1, 31)})
	require.NoError(t, err)
	require.Len(t, cb.Rows, 7)
	for _, r := range cb.Rows {
		assert.NotEqual(t, 77, r.AccountID)
	}
	require.Len(t, cb.Warnings, 1)
	assert.Equal(t, WarningAccountNotFound, cb.Warnings[0].Kind)
	assert.Equal(t, 77, cb.Warnings[0].AccountID)
	assert.Equal(t, "JE-900", cb.Warnings[0].EntryNumber)
	assert.Equal(t, 2, cb.Warnings[0].LineNumber)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(77), logs.All()[0].ContextMap()["account_id"])
}

func TestCashbook_InvalidDateRange(t *testing.T) {
	src := books()
	e := NewEngine(src, src)

	_, err := e.Cashbook(context.Background(), CashbookQuery{Start: date(2024, 3, 1), End: date(2024, 2, 1)})
	require.ErrorIs(t, err, ErrInvalidDateRange)
	assert.Empty(t, src.fetches)
}

func TestCashbook_Filter(t *testing.T) {
	src := books()
	e := NewEngine(src, src)

	cb, err := e.Cashbook(context.Background(), CashbookQuery{Start: date(2024, 1, 1), End: date(2024, 2, 29)})
	require.NoError(t, err)
	fetches := len(src.fetches)

	tests := []struct {
		name string
		view CashbookView
		want int
	}{
		{"empty view keeps everything", CashbookView{}, 10},
		{"account code", CashbookView{Query: "1010"}, 3},
		{"account name, case-insensitive", CashbookView{Query: "credit CARD"}, 2},
		{"entry number", CashbookView{Query: "je-005"}, 2},
		{"exact account", CashbookView{AccountID: acctAR}, 2},
		{"account and query", CashbookView{AccountID: acctCash, Query: "JE-007"}, 1},
		{"no match", CashbookView{Query: "payroll"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, cb.Filter(tt.view), tt.want)
		})
	}

	assert.Len(t, src.fetches, fetches, "filtering never re-queries the source")

	rows := cb.Filter(CashbookView{AccountID: acctCash})
	require.Len(t, rows, 3)
	assert.True(t, rows[0].CombinedBalance.Equal(cb.Rows[0].CombinedBalance), "rows keep their full-book running total")
}
