package accounts

import "time"

type seedAccount struct {
	code     string
	name     string
	typ      AccountType
	parent   string
	isSystem bool
}

// defaultChart is the IFRS-like tree installed for a tenant on first use.
var defaultChart = []seedAccount{
	{code: "1000", name: "Assets", typ: AccountTypeAsset, isSystem: true},
	{code: "1100", name: "Current Assets", typ: AccountTypeAsset, parent: "1000", isSystem: true},
	{code: "1110", name: "Cash and Cash Equivalents", typ: AccountTypeAsset, parent: "1100"},
	{code: "1120", name: "Accounts Receivable", typ: AccountTypeAsset, parent: "1100"},
	{code: "1130", name: "Inventories", typ: AccountTypeAsset, parent: "1100"},
	{code: "1140", name: "Prepaid Expenses", typ: AccountTypeAsset, parent: "1100"},
	{code: "1200", name: "Non-Current Assets", typ: AccountTypeAsset, parent: "1000", isSystem: true},
	{code: "1210", name: "Property, Plant and Equipment", typ: AccountTypeAsset, parent: "1200"},
	{code: "1220", name: "Intangible Assets", typ: AccountTypeAsset, parent: "1200"},
	{code: "1230", name: "Accumulated Depreciation", typ: AccountTypeAsset, parent: "1200"},
	{code: "2000", name: "Liabilities", typ: AccountTypeLiability, isSystem: true},
	{code: "2100", name: "Current Liabilities", typ: AccountTypeLiability, parent: "2000", isSystem: true},
	{code: "2110", name: "Accounts Payable", typ: AccountTypeLiability, parent: "2100"},
	{code: "2120", name: "Accrued Liabilities", typ: AccountTypeLiability, parent: "2100"},
	{code: "2130", name: "Taxes Payable", typ: AccountTypeLiability, parent: "2100"},
	{code: "2200", name: "Non-Current Liabilities", typ: AccountTypeLiability, parent: "2000", isSystem: true},
	{code: "2210", name: "Long-Term Debt", typ: AccountTypeLiability, parent: "2200"},
	{code: "3000", name: "Equity", typ: AccountTypeEquity, isSystem: true},
	{code: "3100", name: "Share Capital", typ: AccountTypeEquity, parent: "3000"},
	{code: "3200", name: "Retained Earnings", typ: AccountTypeEquity, parent: "3000"},
	{code: "4000", name: "Revenue", typ: AccountTypeRevenue, isSystem: true},
	{code: "4100", name: "Operating Revenue", typ: AccountTypeRevenue, parent: "4000"},
	{code: "4200", name: "Other Income", typ: AccountTypeRevenue, parent: "4000"},
	{code: "5000", name: "Expenses", typ: AccountTypeExpense, isSystem: true},
	{code: "5100", name: "Cost of Sales", typ: AccountTypeExpense, parent: "5000"},
	{code: "5200", name: "Operating Expenses", typ: AccountTypeExpense, parent: "5000"},
	{code: "5210", name: "Salaries and Wages", typ: AccountTypeExpense, parent: "5200"},
	{code: "5220", name: "Rent Expense", typ: AccountTypeExpense, parent: "5200"},
	{code: "5230", name: "Depreciation Expense", typ: AccountTypeExpense, parent: "5200"},
}

func defaultAccounts(companyID string, now time.Time) []Account {
	out := make([]Account, 0, len(defaultChart))
	for _, seed := range defaultChart {
		out = append(out, Account{
			CompanyID:  companyID,
			Code:       seed.code,
			Name:       seed.name,
			Type:       seed.typ,
			ParentCode: seed.parent,
			IsSystem:   seed.isSystem,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return out
}
