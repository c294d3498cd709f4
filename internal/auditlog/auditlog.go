// Package auditlog keeps logs/reconciliation-log.csv, one row per recorded
// trial balance run.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/model"
)

// Entry is one row in the reconciliation log.
type Entry struct {
	RunID       uuid.UUID
	Timestamp   time.Time
	AsOf        time.Time
	Status      balance.ReconciliationStatus
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
	Warnings    int
	Snapshot    string
}

// Header is the CSV header for reconciliation-log.csv.
const Header = "run_id,timestamp,as_of,status,total_debit,total_credit,difference,warnings,snapshot"

// Path is the log location relative to a books root.
const Path = "logs/reconciliation-log.csv"

const (
	numFields      = 9
	colRunID       = 0
	colTimestamp   = 1
	colAsOf        = 2
	colStatus      = 3
	colTotalDebit  = 4
	colTotalCredit = 5
	colDifference  = 6
	colWarnings    = 7
	colSnapshot    = 8
)

// FromTrialBalance builds a log entry for tb with a fresh run ID.
func FromTrialBalance(tb *balance.TrialBalance, snapshot string, now time.Time) Entry {
	return Entry{
		RunID:       uuid.New(),
		Timestamp:   now.UTC(),
		AsOf:        tb.AsOf,
		Status:      tb.Status,
		TotalDebit:  tb.TotalDebitColumn,
		TotalCredit: tb.TotalCreditColumn,
		Difference:  tb.Difference,
		Warnings:    len(tb.Warnings),
		Snapshot:    snapshot,
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colRunID] = e.RunID.String()
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colAsOf] = e.AsOf.Format(model.DateFormat)
	row[colStatus] = string(e.Status)
	row[colTotalDebit] = e.TotalDebit.StringFixed(2)
	row[colTotalCredit] = e.TotalCredit.StringFixed(2)
	row[colDifference] = e.Difference.String()
	row[colWarnings] = strconv.Itoa(e.Warnings)
	row[colSnapshot] = e.Snapshot
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	runID, err := uuid.Parse(record[colRunID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing run_id %q: %w", record[colRunID], err)
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	asOf, err := model.ParseDate(record[colAsOf])
	if err != nil {
		return Entry{}, err
	}

	var amounts [3]decimal.Decimal
	for i, col := range []int{colTotalDebit, colTotalCredit, colDifference} {
		amounts[i], err = decimal.NewFromString(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing amount %q: %w", record[col], err)
		}
	}
	warnings, err := strconv.Atoi(record[colWarnings])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing warnings %q: %w", record[colWarnings], err)
	}

	return Entry{
		RunID:       runID,
		Timestamp:   ts,
		AsOf:        asOf,
		Status:      balance.ReconciliationStatus(record[colStatus]),
		TotalDebit:  amounts[0],
		TotalCredit: amounts[1],
		Difference:  amounts[2],
		Warnings:    warnings,
		Snapshot:    record[colSnapshot],
	}, nil
}

// Append writes entries to <root>/logs/reconciliation-log.csv, creating the
// file and header if needed.
func Append(root string, entries []Entry) error {
	path := filepath.Join(root, Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening reconciliation log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return cw.Error()
}

// Read returns all entries from <root>/logs/reconciliation-log.csv. A missing
// file yields no entries.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening reconciliation log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading reconciliation log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
