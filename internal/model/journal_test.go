package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func leg(id int, date time.Time, number string, lineNo int) Leg {
	return Leg{
		Entry: Entry{Number: number, Date: date, Status: StatusPosted},
		Line:  Line{ID: id, LineNumber: lineNo},
	}
}

func TestSortLegs(t *testing.T) {
	legs := []Leg{
		leg(1, day(2024, 1, 10), "JE-002", 1),
		leg(2, day(2024, 1, 5), "JE-001", 2),
		leg(3, day(2024, 1, 10), "JE-001", 1),
		leg(4, day(2024, 1, 5), "JE-001", 1),
		leg(5, day(2024, 1, 10), "JE-002", 1),
	}
	SortLegs(legs)

	var ids []int
	for _, l := range legs {
		ids = append(ids, l.Line.ID)
	}
	// Same date sorts by entry number, then line number, then line ID.
	assert.Equal(t, []int{4, 2, 3, 1, 5}, ids)
}

func TestSortLegs_IgnoresArrivalOrder(t *testing.T) {
	a := []Leg{leg(2, day(2024, 2, 1), "B", 1), leg(1, day(2024, 2, 1), "A", 1)}
	b := []Leg{leg(1, day(2024, 2, 1), "A", 1), leg(2, day(2024, 2, 1), "B", 1)}
	SortLegs(a)
	SortLegs(b)
	assert.Equal(t, b, a)
}

func TestNormalSide(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want Side
	}{
		{AccountTypeAsset, SideDebit},
		{AccountTypeExpense, SideDebit},
		{AccountTypeLiability, SideCredit},
		{AccountTypeEquity, SideCredit},
		{AccountTypeRevenue, SideCredit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.NormalSide(), "NormalSide(%q)", tt.typ)
	}
	assert.Equal(t, 1, SideDebit.Sign())
	assert.Equal(t, -1, SideCredit.Sign())
}

func TestValid(t *testing.T) {
	assert.True(t, AccountTypeEquity.Valid())
	assert.False(t, AccountType("contra").Valid())
	assert.True(t, StatusVoided.Valid())
	assert.False(t, EntryStatus("pending").Valid())
}

func TestParseDateAndDay(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), d)

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)

	loc := time.FixedZone("X", 5*3600)
	assert.Equal(t, day(2024, 3, 1), Day(time.Date(2024, 3, 1, 23, 59, 0, 0, loc)))
}
