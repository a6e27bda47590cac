package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

type stubDirectory struct {
	names map[string]string
}

func (d *stubDirectory) Get(_ context.Context, companyID, code string) (accounts.Account, error) {
	name, ok := d.names[code]
	if !ok {
		return accounts.Account{}, fmt.Errorf("no account %s", code)
	}
	return accounts.Account{CompanyID: companyID, Code: code, Name: name}, nil
}

func newTestEngine(t *testing.T) *Service {
	t.Helper()
	directory := &stubDirectory{names: map[string]string{
		"1110": "Cash and Cash Equivalents",
		"1120": "Accounts Receivable",
		"4100": "Operating Revenue",
		"5220": "Rent Expense",
	}}
	svc := NewService(kv.NewMemoryStore(), directory)
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) })
	return svc
}

func balancedEntry(amount float64, date string) JournalEntry {
	return JournalEntry{
		CompanyID:       "2",
		TransactionDate: date,
		Type:            JournalTypeGeneral,
		Description:     "cash sale",
		Currency:        "USD",
		Status:          JournalStatusPosted,
		UserID:          "u-9",
		Lines: []JournalLine{
			{AccountID: "1110", Debit: amount},
			{AccountID: "4100", Credit: amount},
		},
	}
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	saved, err := svc.Save(ctx, balancedEntry(250, "2025-03-05"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.JournalNumber)
	assert.NotNil(t, saved.PostingDate)
	assert.Equal(t, 250.0, saved.TotalAmount)
	assert.Equal(t, "2025-03", saved.Period)
	assert.Equal(t, "Cash and Cash Equivalents", saved.Lines[0].AccountName)

	listed, err := svc.List(ctx, "2")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, saved, listed[0])
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.Lines[1].Credit = 100.02
	_, err := svc.Save(ctx, entry)
	assert.ErrorIs(t, err, ErrUnbalanced)

	listed, err := svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPostAcceptsDriftWithinTolerance(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.Lines[1].Credit = 100.005
	_, err := svc.Save(ctx, entry)
	assert.NoError(t, err)
}

func TestDraftSkipsBalanceCheck(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.Status = JournalStatusDraft
	entry.Lines[1].Credit = 40
	saved, err := svc.Save(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, JournalStatusDraft, saved.Status)
	assert.Nil(t, saved.PostingDate)
}

func TestSaveRejectsLineOnBothSides(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.Lines[0].Credit = 5
	_, err := svc.Save(ctx, entry)
	assert.ErrorIs(t, err, ErrLineBothSides)
}

func TestSaveRejectsUnknownAccount(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.Lines[0].AccountID = "0000"
	_, err := svc.Save(ctx, entry)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestSaveRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	entry := balancedEntry(100, "2025-03-05")
	entry.JournalNumber = "JE-2025-FIXED001"
	_, err := svc.Save(ctx, entry)
	require.NoError(t, err)

	_, err = svc.Save(ctx, entry)
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestReverseSwapsEveryLine(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	original, err := svc.Save(ctx, balancedEntry(780.25, "2025-03-06"))
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, "2", original.JournalNumber)
	require.NoError(t, err)

	assert.NotEqual(t, original.JournalNumber, reversal.JournalNumber)
	assert.Equal(t, JournalTypeReversal, reversal.Type)
	assert.Equal(t, JournalStatusPosted, reversal.Status)
	assert.Equal(t, original.TotalAmount, reversal.TotalAmount)
	assert.Contains(t, reversal.Description, original.JournalNumber)
	require.Len(t, reversal.Lines, len(original.Lines))
	for i := range original.Lines {
		assert.Equal(t, original.Lines[i].Credit, reversal.Lines[i].Debit)
		assert.Equal(t, original.Lines[i].Debit, reversal.Lines[i].Credit)
		assert.Equal(t, original.Lines[i].AccountID, reversal.Lines[i].AccountID)
	}

	// the original entry is untouched
	after, err := svc.Get(ctx, "2", original.JournalNumber)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestReverseRequiresPostedEntry(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	draft := balancedEntry(50, "2025-03-06")
	draft.Status = JournalStatusDraft
	saved, err := svc.Save(ctx, draft)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, "2", saved.JournalNumber)
	assert.ErrorIs(t, err, ErrNotPosted)
}

func TestSaveBatchRejectsWholeBatchOnInvalidEntry(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	good := balancedEntry(10, "2025-03-05")
	bad := balancedEntry(10, "2025-03-05")
	bad.Lines[1].Credit = 99

	_, err := svc.SaveBatch(ctx, []JournalEntry{good, bad})
	assert.ErrorIs(t, err, ErrUnbalanced)

	listed, err := svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDemoSeedingRestrictedToDemoTenant(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)

	empty, err := svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	demo, err := svc.List(ctx, "1")
	require.NoError(t, err)
	assert.NotEmpty(t, demo)

	// bootstrap happens once
	again, err := svc.List(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, len(demo), len(again))

	// and never leaks across tenants
	stillEmpty, err := svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, stillEmpty)
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestWritesNotifyInvalidator(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)
	inv := &countingInvalidator{}
	svc.WithInvalidator(inv, nil)

	saved, err := svc.Save(ctx, balancedEntry(250, "2025-03-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	_, err = svc.SaveBatch(ctx, []JournalEntry{balancedEntry(40, "2025-03-06"), balancedEntry(60, "2025-03-06")})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)

	_, err = svc.Reverse(ctx, "2", saved.JournalNumber)
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls)

	// reads never touch the invalidator
	_, err = svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls)
}

func TestRejectedWriteSkipsInvalidator(t *testing.T) {
	ctx := context.Background()
	svc := newTestEngine(t)
	inv := &countingInvalidator{}
	svc.WithInvalidator(inv, nil)

	entry := balancedEntry(100, "2025-03-05")
	entry.Lines[1].Credit = 100.02
	_, err := svc.Save(ctx, entry)
	require.ErrorIs(t, err, ErrUnbalanced)
	assert.Equal(t, 0, inv.calls)
}
