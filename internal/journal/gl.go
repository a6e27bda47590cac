package journal

import (
	"context"
	"sort"
	"time"
)

// GLTransactions derives the flattened general ledger for a tenant: one row
// per line of every posted entry, classified for exceptions at derivation
// time, ascending by transaction date. Draft entries never surface here.
func (s *Service) GLTransactions(ctx context.Context, companyID string) ([]GLTransaction, error) {
	entries, err := s.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return DeriveGL(entries), nil
}

// DeriveGL flattens posted entries into GL rows. Ordering is a stable sort
// by transaction date, so same-day rows keep entry order.
func DeriveGL(entries []JournalEntry) []GLTransaction {
	var rows []GLTransaction
	for _, entry := range entries {
		if entry.Status != JournalStatusPosted {
			continue
		}
		isException, reason := classify(entry)
		for _, line := range entry.Lines {
			rows = append(rows, GLTransaction{
				ID:              entry.JournalNumber + ":" + line.ID,
				JournalNumber:   entry.JournalNumber,
				TransactionDate: entry.TransactionDate,
				Period:          entry.Period,
				AccountID:       line.AccountID,
				AccountName:     line.AccountName,
				Description:     lineDescription(entry, line),
				CostCenter:      line.CostCenter,
				Debit:           line.Debit,
				Credit:          line.Credit,
				Currency:        entry.Currency,
				TotalAmount:     entry.TotalAmount,
				IsException:     isException,
				ExceptionReason: reason,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TransactionDate < rows[j].TransactionDate
	})
	return rows
}

// classify computes the exception flag for every row derived from an entry.
// Weekend posting wins over the high-value flag when both apply. The
// threshold compares in entry currency, not a normalized base.
func classify(entry JournalEntry) (bool, string) {
	if date, err := parseCalendarDate(entry.TransactionDate); err == nil {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return true, exceptionWeekend
		}
	}
	if entry.TotalAmount > highValueThreshold {
		return true, exceptionHighValue
	}
	return false, ""
}

func lineDescription(entry JournalEntry, line JournalLine) string {
	if line.Description != "" {
		return line.Description
	}
	return entry.Description
}
