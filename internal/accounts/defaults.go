package accounts

import "github.com/cleared-dev/tally/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
func DefaultChart(entityType string) []model.Account {
	switch entityType {
	case "llc_single_member":
		return llcSingleMemberChart()
	default:
		return llcSingleMemberChart()
	}
}

func llcSingleMemberChart() []model.Account {
	return []model.Account{
		{ID: 1, Code: "1010", Name: "Business Checking", Type: model.AccountTypeAsset, Active: true},
		{ID: 2, Code: "1020", Name: "Business Savings", Type: model.AccountTypeAsset, Active: true},
		{ID: 3, Code: "1200", Name: "Accounts Receivable", Type: model.AccountTypeAsset, Active: true},
		{ID: 4, Code: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, Active: true},
		{ID: 5, Code: "2100", Name: "Accounts Payable", Type: model.AccountTypeLiability, Active: true},
		{ID: 6, Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity, Active: true},
		{ID: 7, Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue, Active: true},
		{ID: 8, Code: "4020", Name: "Product Revenue", Type: model.AccountTypeRevenue, Active: true},
		{ID: 9, Code: "5010", Name: "Advertising & Marketing", Type: model.AccountTypeExpense, Active: true},
		{ID: 10, Code: "5020", Name: "Software & SaaS", Type: model.AccountTypeExpense, Active: true},
		{ID: 11, Code: "5030", Name: "Office Supplies", Type: model.AccountTypeExpense, Active: true},
	}
}
