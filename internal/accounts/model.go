package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Code is unique per tenant and
// hierarchical by convention; ParentCode must resolve to another account.
type Account struct {
	CompanyID  string      `json:"company_id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Type       AccountType `json:"type"`
	ParentCode string      `json:"parent_code,omitempty"`
	Balance    float64     `json:"balance"`
	IsSystem   bool        `json:"is_system"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TreeNode is an Account with its resolved children, siblings ordered by code.
type TreeNode struct {
	Account
	Level    int        `json:"level"`
	Children []TreeNode `json:"children,omitempty"`
}
