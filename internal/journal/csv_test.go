package journal

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// leg builds one line of a posted entry. Entry and line IDs are derived from
// the entry and line numbers so tests stay short.
func leg(entryID int, number string, d time.Time, lineNo, accountID int, debit, credit string) model.Leg {
	l := model.Leg{
		Entry: model.Entry{ID: entryID, Number: number, Date: d, Status: model.StatusPosted},
		Line: model.Line{
			ID:         entryID*10 + lineNo,
			EntryID:    entryID,
			AccountID:  accountID,
			LineNumber: lineNo,
		},
	}
	if debit != "" {
		l.Line.Debit = dec(debit)
	}
	if credit != "" {
		l.Line.Credit = dec(credit)
	}
	return l
}

func TestRoundTrip(t *testing.T) {
	legs := []model.Leg{
		leg(1, "JE-001", date(2025, 1, 3), 1, 6, "4.00", ""),
		leg(1, "JE-001", date(2025, 1, 3), 2, 3, "", "4.00"),
	}
	legs[0].Line.Description = "GitHub Pro subscription"
	legs[1].Line.Description = "GitHub Pro subscription"

	var buf bytes.Buffer
	err := WriteLegs(&buf, legs)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))

	got, err := ReadLegs(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range legs {
		assert.Equal(t, legs[i].Entry.ID, got[i].Entry.ID)
		assert.Equal(t, legs[i].Entry.Number, got[i].Entry.Number)
		assert.True(t, legs[i].Entry.Date.Equal(got[i].Entry.Date))
		assert.Equal(t, legs[i].Entry.Status, got[i].Entry.Status)
		assert.Equal(t, legs[i].Line.ID, got[i].Line.ID)
		assert.Equal(t, legs[i].Line.EntryID, got[i].Line.EntryID)
		assert.Equal(t, legs[i].Line.LineNumber, got[i].Line.LineNumber)
		assert.Equal(t, legs[i].Line.AccountID, got[i].Line.AccountID)
		assert.Equal(t, legs[i].Line.Description, got[i].Line.Description)
		assert.True(t, legs[i].Line.Debit.Equal(got[i].Line.Debit), "debit mismatch row %d", i)
		assert.True(t, legs[i].Line.Credit.Equal(got[i].Line.Credit), "credit mismatch row %d", i)
	}
}

func TestZeroAmounts(t *testing.T) {
	l := leg(2, "JE-002", date(2025, 1, 5), 1, 6, "127.50", "")

	row := MarshalLeg(l)
	assert.Equal(t, "127.50", row[colDebit], "StringFixed(2) should preserve trailing zero")
	assert.Empty(t, row[colCredit])

	got, err := UnmarshalLeg(row)
	require.NoError(t, err)
	assert.True(t, got.Line.Debit.Equal(dec("127.50")), "debit: got %s", got.Line.Debit)
	assert.True(t, got.Line.Credit.IsZero())
}

func TestSpecialCharactersInDescription(t *testing.T) {
	l := leg(4, "JE-004", date(2025, 1, 15), 1, 5, "", "3500.00")
	l.Line.Description = `ACME CONSULTING, "Invoice 1042" & more`

	var buf bytes.Buffer
	require.NoError(t, WriteLegs(&buf, []model.Leg{l}))

	got, err := ReadLegs(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, l.Line.Description, got[0].Line.Description)
}

func TestReadLegs_Empty(t *testing.T) {
	legs, err := ReadLegs(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestReadLegs_HeaderOnly(t *testing.T) {
	legs, err := ReadLegs(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, legs)
}

func TestReadLegs_BadRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"short row", "1,JE-001,2024-01-02,posted,1,1,1,x,5.00", "wrong number of fields"},
		{"bad date", "1,JE-001,2024-13-02,posted,1,1,1,x,5.00,", "parsing date"},
		{"bad amount", "1,JE-001,2024-01-02,posted,1,1,1,x,five,", "parsing debit"},
		{"bad account", "1,JE-001,2024-01-02,posted,1,1,cash,x,5.00,", "parsing account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLegs(strings.NewReader(Header + "\n" + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/books/2024/01/journal.csv")
	require.NoError(t, err)
	defer f.Close()

	legs, err := ReadLegs(f)
	require.NoError(t, err)
	require.Len(t, legs, 8, "testdata has 4 entries x 2 lines")

	assert.True(t, legs[0].Line.Debit.Equal(legs[1].Line.Credit), "JE-001 should balance")

	for i, l := range legs {
		assert.NotEmpty(t, l.Entry.Number, "leg %d missing entry_number", i)
		assert.False(t, l.Entry.Date.IsZero(), "leg %d missing date", i)
		assert.NotZero(t, l.Line.AccountID, "leg %d missing account_id", i)
		assert.True(t, l.Entry.Status.Valid(), "leg %d has status %q", i, l.Entry.Status)
	}
}

func TestDecimalPrecision(t *testing.T) {
	debitLeg := leg(10, "JE-010", date(2025, 1, 10), 1, 6, "33.33", "")
	creditLeg := leg(10, "JE-010", date(2025, 1, 10), 2, 1, "", "33.33")

	var buf bytes.Buffer
	require.NoError(t, WriteLegs(&buf, []model.Leg{debitLeg, creditLeg}))

	got, err := ReadLegs(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	diff := got[0].Line.Debit.Sub(got[1].Line.Credit)
	assert.True(t, diff.IsZero(), "difference should be exactly zero, got %s", diff)

	l := leg(11, "JE-011", date(2025, 1, 11), 1, 6, "", "")
	l.Line.Debit = dec("0.1").Add(dec("0.2"))
	got2, err := UnmarshalLeg(MarshalLeg(l))
	require.NoError(t, err)
	assert.True(t, got2.Line.Debit.Equal(dec("0.30")), "0.1+0.2 should equal 0.30 exactly, got %s", got2.Line.Debit)
}

func TestStringFixed2Formatting(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4.00", "4.00"},
		{"127.5", "127.50"},
		{"3500", "3500.00"},
		{"0.10", "0.10"},
		{"42.99", "42.99"},
	}
	for _, tt := range tests {
		row := MarshalLeg(leg(1, "JE-001", date(2025, 1, 1), 1, 6, tt.input, ""))
		assert.Equal(t, tt.want, row[colDebit], "input %q", tt.input)
	}
}

func TestAllStatusValues(t *testing.T) {
	for _, status := range []model.EntryStatus{model.StatusDraft, model.StatusPosted, model.StatusVoided} {
		l := leg(1, "JE-001", date(2025, 1, 1), 1, 6, "1.00", "")
		l.Entry.Status = status

		var buf bytes.Buffer
		require.NoError(t, WriteLegs(&buf, []model.Leg{l}))

		got, err := ReadLegs(&buf)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, status, got[0].Entry.Status, "status %q should survive round-trip", status)
	}
}
