package journal

import "time"

// demoEntries is the one-time bootstrap for the demo tenant. It is not a
// general seeding mechanism; no other tenant is ever seeded.
func demoEntries(now time.Time) []JournalEntry {
	posted := now
	return []JournalEntry{
		{
			JournalNumber:   "JE-2025-DEMO0001",
			CompanyID:       demoCompanyID,
			Reference:       "INV-1042",
			TransactionDate: "2025-01-15",
			PostingDate:     &posted,
			Type:            JournalTypeGeneral,
			Description:     "Customer invoice settlement",
			Currency:        "USD",
			ExchangeRate:    1,
			Status:          JournalStatusPosted,
			UserID:          "demo",
			Period:          "2025-01",
			TotalAmount:     5400,
			CreatedAt:       now,
			Lines: []JournalLine{
				{ID: "demo-1a", AccountID: "1110", AccountName: "Cash and Cash Equivalents", Debit: 5400},
				{ID: "demo-1b", AccountID: "1120", AccountName: "Accounts Receivable", Credit: 5400},
			},
		},
		{
			JournalNumber:   "JE-2025-DEMO0002",
			CompanyID:       demoCompanyID,
			Reference:       "PAY-220",
			TransactionDate: "2025-01-25",
			PostingDate:     &posted,
			Type:            JournalTypeAccrual,
			Description:     "Quarterly rent accrual",
			Currency:        "USD",
			ExchangeRate:    1,
			Status:          JournalStatusPosted,
			UserID:          "demo",
			Period:          "2025-01",
			TotalAmount:     125000,
			CreatedAt:       now,
			Lines: []JournalLine{
				{ID: "demo-2a", AccountID: "5220", AccountName: "Rent Expense", Debit: 125000},
				{ID: "demo-2b", AccountID: "2120", AccountName: "Accrued Liabilities", Credit: 125000},
			},
		},
		{
			JournalNumber:   "JE-2025-DEMO0003",
			CompanyID:       demoCompanyID,
			TransactionDate: "2025-02-03",
			Type:            JournalTypeAdjustment,
			Description:     "Depreciation true-up (draft)",
			Currency:        "USD",
			ExchangeRate:    1,
			Status:          JournalStatusDraft,
			UserID:          "demo",
			Period:          "2025-02",
			TotalAmount:     820,
			CreatedAt:       now,
			Lines: []JournalLine{
				{ID: "demo-3a", AccountID: "5230", AccountName: "Depreciation Expense", Debit: 820},
				{ID: "demo-3b", AccountID: "1230", AccountName: "Accumulated Depreciation", Credit: 820},
			},
		},
	}
}
