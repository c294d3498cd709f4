package balance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// memSource is an in-memory LineSource and AccountLoader. It applies
// Filter.Match and returns legs in insertion order, so tests also exercise
// the engine's own sort.
type memSource struct {
	mu       sync.Mutex
	accounts []model.Account
	legs     []model.Leg
	fetches  []Filter
	err      error
	nextID   int
}

func (s *memSource) LoadAccounts(_ context.Context) ([]model.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.accounts, nil
}

func (s *memSource) Fetch(ctx context.Context, f Filter) ([]model.Leg, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, f)
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Leg
	for _, l := range s.legs {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// post adds one entry. Each line is {accountID, debit, credit}.
func (s *memSource) post(status model.EntryStatus, d time.Time, number string, lines ...line) {
	s.nextID++
	entry := model.Entry{ID: s.nextID, Number: number, Date: d, Status: status}
	for i, ln := range lines {
		s.legs = append(s.legs, model.Leg{
			Entry: entry,
			Line: model.Line{
				ID:          s.nextID*100 + i,
				EntryID:     entry.ID,
				AccountID:   ln.account,
				LineNumber:  i + 1,
				Debit:       dec(ln.debit),
				Credit:      dec(ln.credit),
				Description: number,
			},
		})
	}
}

type line struct {
	account       int
	debit, credit string
}

func dr(account int, amount string) line { return line{account: account, debit: amount, credit: "0"} }
func cr(account int, amount string) line { return line{account: account, debit: "0", credit: amount} }

var errDown = errors.New("connection refused")

const (
	acctCash     = 1
	acctAR       = 2
	acctCard     = 3
	acctEquity   = 4
	acctRevenue  = 5
	acctSoftware = 6
	acctDormant  = 7
	acctA100     = 100
)

func chart() []model.Account {
	return []model.Account{
		{ID: acctCash, Code: "1010", Name: "Business Checking", Type: model.AccountTypeAsset, Active: true},
		{ID: acctAR, Code: "1200", Name: "Accounts Receivable", Type: model.AccountTypeAsset, Active: true},
		{ID: acctCard, Code: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, Active: true},
		{ID: acctEquity, Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity, Active: true},
		{ID: acctRevenue, Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue, Active: true},
		{ID: acctSoftware, Code: "5020", Name: "Software & SaaS", Type: model.AccountTypeExpense, Active: true},
		{ID: acctDormant, Code: "5030", Name: "Office Supplies", Type: model.AccountTypeExpense, Active: true},
		{ID: acctA100, Code: "A100", Name: "Scenario Asset", Type: model.AccountTypeAsset, Active: true},
	}
}

// books returns a small balanced set of books with one draft and one voided
// entry mixed in. Entries are added out of date order on purpose.
func books() *memSource {
	s := &memSource{accounts: chart()}
	s.post(model.StatusPosted, date(2024, 1, 15), "JE-002", dr(acctAR, "3500.00"), cr(acctRevenue, "3500.00"))
	s.post(model.StatusPosted, date(2024, 1, 2), "JE-001", dr(acctCash, "5000.00"), cr(acctEquity, "5000.00"))
	s.post(model.StatusPosted, date(2024, 1, 20), "JE-003", dr(acctSoftware, "4.00"), cr(acctCard, "4.00"))
	s.post(model.StatusDraft, date(2024, 1, 25), "JE-004", dr(acctSoftware, "99.00"), cr(acctCash, "99.00"))
	s.post(model.StatusPosted, date(2024, 2, 3), "JE-005", dr(acctCash, "3500.00"), cr(acctAR, "3500.00"))
	s.post(model.StatusVoided, date(2024, 2, 10), "JE-006", dr(acctSoftware, "250.00"), cr(acctCash, "250.00"))
	s.post(model.StatusPosted, date(2024, 2, 12), "JE-007", dr(acctCard, "4.00"), cr(acctCash, "4.00"))
	return s
}

// scenario is the A100 example: three single-sided lines on one asset.
func scenario() *memSource {
	s := &memSource{accounts: chart()}
	s.post(model.StatusPosted, date(2024, 1, 5), "JE-100", dr(acctA100, "1000"))
	s.post(model.StatusPosted, date(2024, 1, 10), "JE-101", cr(acctA100, "300"))
	s.post(model.StatusPosted, date(2024, 2, 1), "JE-102", dr(acctA100, "200"))
	return s
}
