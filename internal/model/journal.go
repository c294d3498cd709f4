package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft  EntryStatus = "draft"
	StatusPosted EntryStatus = "posted"
	StatusVoided EntryStatus = "voided"
)

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusVoided:
		return true
	}
	return false
}

// Entry is a journal entry header.
type Entry struct {
	ID     int         `json:"id"`
	Number string      `json:"number"` // unique, human-readable
	Date   time.Time   `json:"date"`
	Status EntryStatus `json:"status"`
}

// Line is one debit/credit line of a journal entry.
type Line struct {
	ID          int             `json:"id"`
	EntryID     int             `json:"entry_id"`
	AccountID   int             `json:"account_id"`
	LineNumber  int             `json:"line_number"`
	Debit       decimal.Decimal `json:"debit"`  // >= 0
	Credit      decimal.Decimal `json:"credit"` // >= 0
	Description string          `json:"description"`
}

// Net returns debit minus credit.
func (l Line) Net() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// Leg is a journal line joined with the header of the entry it belongs to.
// Line sources return legs so that ordering never needs a second lookup.
type Leg struct {
	Entry Entry `json:"entry"`
	Line  Line  `json:"line"`
}

// LegLess orders legs by (entry date, entry number, line number). Line ID
// breaks any remaining tie so that the order is total.
func LegLess(a, b Leg) bool {
	if !a.Entry.Date.Equal(b.Entry.Date) {
		return a.Entry.Date.Before(b.Entry.Date)
	}
	if a.Entry.Number != b.Entry.Number {
		return a.Entry.Number < b.Entry.Number
	}
	if a.Line.LineNumber != b.Line.LineNumber {
		return a.Line.LineNumber < b.Line.LineNumber
	}
	return a.Line.ID < b.Line.ID
}

// SortLegs sorts legs in place into posting order.
func SortLegs(legs []Leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return LegLess(legs[i], legs[j])
	})
}
