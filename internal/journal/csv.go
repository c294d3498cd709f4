package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for journal.csv.
const Header = "entry_id,entry_number,date,status,line_id,line_number,account_id,description,debit,credit"

const (
	numFields     = 10
	colEntryID    = 0
	colEntryNum   = 1
	colDate       = 2
	colStatus     = 3
	colLineID     = 4
	colLineNumber = 5
	colAcctID     = 6
	colDesc       = 7
	colDebit      = 8
	colCredit     = 9
)

// ReadLegs reads all legs from a journal.csv reader.
func ReadLegs(r io.Reader) ([]model.Leg, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var legs []model.Leg
	for i, rec := range records[1:] {
		leg, err := UnmarshalLeg(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// WriteLegs writes legs to a journal.csv writer (including header).
func WriteLegs(w io.Writer, legs []model.Leg) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, leg := range legs {
		if err := cw.Write(MarshalLeg(leg)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalLeg converts a Leg to a CSV row ([]string).
func MarshalLeg(leg model.Leg) []string {
	row := make([]string, numFields)
	row[colEntryID] = strconv.Itoa(leg.Entry.ID)
	row[colEntryNum] = leg.Entry.Number
	row[colDate] = leg.Entry.Date.Format(model.DateFormat)
	row[colStatus] = string(leg.Entry.Status)
	row[colLineID] = strconv.Itoa(leg.Line.ID)
	row[colLineNumber] = strconv.Itoa(leg.Line.LineNumber)
	row[colAcctID] = strconv.Itoa(leg.Line.AccountID)
	row[colDesc] = leg.Line.Description

	if !leg.Line.Debit.IsZero() {
		row[colDebit] = leg.Line.Debit.StringFixed(2)
	}
	if !leg.Line.Credit.IsZero() {
		row[colCredit] = leg.Line.Credit.StringFixed(2)
	}
	return row
}

// UnmarshalLeg converts a CSV row to a Leg.
func UnmarshalLeg(record []string) (model.Leg, error) {
	if len(record) != numFields {
		return model.Leg{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	entryID, err := strconv.Atoi(record[colEntryID])
	if err != nil {
		return model.Leg{}, fmt.Errorf("parsing entry_id %q: %w", record[colEntryID], err)
	}

	date, err := model.ParseDate(record[colDate])
	if err != nil {
		return model.Leg{}, err
	}

	lineID, err := strconv.Atoi(record[colLineID])
	if err != nil {
		return model.Leg{}, fmt.Errorf("parsing line_id %q: %w", record[colLineID], err)
	}

	lineNumber, err := strconv.Atoi(record[colLineNumber])
	if err != nil {
		return model.Leg{}, fmt.Errorf("parsing line_number %q: %w", record[colLineNumber], err)
	}

	accountID, err := strconv.Atoi(record[colAcctID])
	if err != nil {
		return model.Leg{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}

	var debit, credit decimal.Decimal

	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.Leg{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.Leg{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return model.Leg{
		Entry: model.Entry{
			ID:     entryID,
			Number: record[colEntryNum],
			Date:   date,
			Status: model.EntryStatus(record[colStatus]),
		},
		Line: model.Line{
			ID:          lineID,
			EntryID:     entryID,
			AccountID:   accountID,
			LineNumber:  lineNumber,
			Debit:       debit,
			Credit:      credit,
			Description: record[colDesc],
		},
	}, nil
}
