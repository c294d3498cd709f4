package model

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which a balance of this type is positive.
// Assets and expenses are debit-normal; everything else is credit-normal.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Side is one of the two columns of a double-entry line.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Sign is +1 for debit and -1 for credit.
func (s Side) Sign() int {
	if s == SideDebit {
		return 1
	}
	return -1
}

// Account represents a row in chart-of-accounts.csv.
type Account struct {
	ID     int         `json:"id"`
	Code   string      `json:"code"` // unique, sorts lexicographically
	Name   string      `json:"name"`
	Type   AccountType `json:"type"`
	Active bool        `json:"active"`
}

// NormalSide is shorthand for a.Type.NormalSide().
func (a Account) NormalSide() Side {
	return a.Type.NormalSide()
}
