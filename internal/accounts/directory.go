package accounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrAccountNotFound is returned when a line references an account that is
// not in the directory.
var ErrAccountNotFound = errors.New("account not found")

// ChartPath is the chart of accounts location relative to a books root.
const ChartPath = "accounts/chart-of-accounts.csv"

// Directory is an immutable in-memory index over the active accounts of one
// query. It is safe for concurrent reads.
type Directory struct {
	accounts []model.Account // sorted by code
	byID     map[int]model.Account
	byCode   map[string]model.Account
}

// NewDirectory builds a Directory from a slice of accounts. Inactive accounts
// are left out.
func NewDirectory(accounts []model.Account) *Directory {
	d := &Directory{
		byID:   make(map[int]model.Account, len(accounts)),
		byCode: make(map[string]model.Account, len(accounts)),
	}
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		d.accounts = append(d.accounts, a)
		d.byID[a.ID] = a
		d.byCode[a.Code] = a
	}
	sort.Slice(d.accounts, func(i, j int) bool {
		return d.accounts[i].Code < d.accounts[j].Code
	})
	return d
}

// Lookup returns the account with the given ID.
func (d *Directory) Lookup(id int) (model.Account, error) {
	a, ok := d.byID[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account id %d: %w", id, ErrAccountNotFound)
	}
	return a, nil
}

// NormalSide returns the normal side of the account with the given ID.
func (d *Directory) NormalSide(id int) (model.Side, error) {
	a, err := d.Lookup(id)
	if err != nil {
		return "", err
	}
	return a.NormalSide(), nil
}

// Sign returns +1 for debit-normal and -1 for credit-normal accounts. Unknown
// accounts get 0, which contributes nothing to a balance.
func (d *Directory) Sign(id int) int {
	a, ok := d.byID[id]
	if !ok {
		return 0
	}
	return a.NormalSide().Sign()
}

// Sorted returns all accounts ordered by code.
func (d *Directory) Sorted() []model.Account {
	return d.accounts
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.accounts)
}

// Get returns an account by ID.
func (d *Directory) Get(id int) (model.Account, bool) {
	a, ok := d.byID[id]
	return a, ok
}

// ByCode returns an account by its code.
func (d *Directory) ByCode(code string) (model.Account, bool) {
	a, ok := d.byCode[code]
	return a, ok
}

// Exists reports whether an account ID exists.
func (d *Directory) Exists(id int) bool {
	_, ok := d.byID[id]
	return ok
}

// ByType returns all accounts of the given type, in code order.
func (d *Directory) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range d.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Load reads accounts/chart-of-accounts.csv from a books root.
func Load(root string) ([]model.Account, error) {
	path := filepath.Join(root, ChartPath)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return accts, nil
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func Save(root string, accts []model.Account) error {
	dir := filepath.Join(root, filepath.Dir(ChartPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(root, ChartPath))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, accts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
