package journal

import (
	"fmt"
	"time"
)

// JournalType enumerates entry classifications.
type JournalType string

const (
	JournalTypeGeneral          JournalType = "GENERAL"
	JournalTypeAccrual          JournalType = "ACCRUAL"
	JournalTypeAdjustment       JournalType = "ADJUSTMENT"
	JournalTypeReclassification JournalType = "RECLASSIFICATION"
	JournalTypeReversal         JournalType = "REVERSAL"
)

// Valid reports whether t is a known journal type.
func (t JournalType) Valid() bool {
	switch t {
	case JournalTypeGeneral, JournalTypeAccrual, JournalTypeAdjustment, JournalTypeReclassification, JournalTypeReversal:
		return true
	}
	return false
}

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "DRAFT"
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

// JournalLine stores a debit or credit amount against an account. Debit and
// credit are mutually exclusive. AccountName is the account's name at the
// time the entry was written; later renames do not rewrite it.
type JournalLine struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	CostCenter  string  `json:"cost_center,omitempty"`
	Description string  `json:"description,omitempty"`
}

// JournalEntry captures a full double-entry posting. TransactionDate is a
// calendar date (YYYY-MM-DD) carried as text so weekday classification never
// depends on the host timezone.
type JournalEntry struct {
	JournalNumber     string        `json:"journal_number"`
	CompanyID         string        `json:"company_id"`
	Reference         string        `json:"reference,omitempty"`
	TransactionDate   string        `json:"transaction_date"`
	PostingDate       *time.Time    `json:"posting_date,omitempty"`
	Type              JournalType   `json:"type"`
	Description       string        `json:"description,omitempty"`
	Currency          string        `json:"currency"`
	ExchangeRate      float64       `json:"exchange_rate"`
	ReportingCurrency string        `json:"reporting_currency,omitempty"`
	Status            JournalStatus `json:"status"`
	UserID            string        `json:"user_id"`
	Period            string        `json:"period"`
	Lines             []JournalLine `json:"lines"`
	TotalAmount       float64       `json:"total_amount"`
	CreatedAt         time.Time     `json:"created_at"`
}

// GLTransaction is a read-only projection: one row per line of a posted
// entry. Never persisted, always recomputed.
type GLTransaction struct {
	ID              string  `json:"id"`
	JournalNumber   string  `json:"journal_number"`
	TransactionDate string  `json:"transaction_date"`
	Period          string  `json:"period"`
	AccountID       string  `json:"account_id"`
	AccountName     string  `json:"account_name"`
	Description     string  `json:"description,omitempty"`
	CostCenter      string  `json:"cost_center,omitempty"`
	Debit           float64 `json:"debit"`
	Credit          float64 `json:"credit"`
	Currency        string  `json:"currency"`
	TotalAmount     float64 `json:"total_amount"`
	IsException     bool    `json:"is_exception"`
	ExceptionReason string  `json:"exception_reason,omitempty"`
}

// parseCalendarDate reads YYYY-MM-DD as a plain calendar date. time.Parse
// without a zone designator yields UTC, so the derived weekday is stable
// across hosts.
func parseCalendarDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("journal: invalid transaction date %q: %w", value, err)
	}
	return date, nil
}
