package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

func testTree() []accounts.TreeNode {
	flat := []accounts.Account{
		{CompanyID: "1", Code: "1000", Name: "Assets", Type: accounts.AccountTypeAsset},
		{CompanyID: "1", Code: "1100", Name: "Cash", Type: accounts.AccountTypeAsset, ParentCode: "1000"},
		{CompanyID: "1", Code: "1200", Name: "Receivables", Type: accounts.AccountTypeAsset, ParentCode: "1000"},
		{CompanyID: "1", Code: "4000", Name: "Revenue", Type: accounts.AccountTypeRevenue},
	}
	return accounts.BuildTree(flat)
}

func glRow(account string, debit, credit float64) journal.GLTransaction {
	return journal.GLTransaction{AccountID: account, Debit: debit, Credit: credit, Period: "2025-01"}
}

func TestBuildTrialBalanceRollsUpParents(t *testing.T) {
	rows := []journal.GLTransaction{
		glRow("1100", 500, 0),
		glRow("1200", 250, 100),
		glRow("4000", 0, 650),
	}
	report := BuildTrialBalance(testTree(), rows, nil)

	byCode := make(map[string]TrialBalanceLine)
	for _, line := range report.Lines {
		byCode[line.AccountCode] = line
	}

	assert.Equal(t, 500.0, byCode["1100"].CurrentNet)
	assert.Equal(t, 150.0, byCode["1200"].CurrentNet)
	assert.Equal(t, 650.0, byCode["1000"].CurrentNet) // parent rolls up
	assert.Equal(t, -650.0, byCode["4000"].CurrentNet)
	assert.True(t, byCode["1000"].HasChildren)
	assert.False(t, byCode["1100"].HasChildren)
	assert.Equal(t, 0, byCode["1000"].Level)
	assert.Equal(t, 1, byCode["1100"].Level)
	assert.Equal(t, 750.0, report.TotalDebit)
	assert.Equal(t, 750.0, report.TotalCredit)
}

func TestBuildTrialBalanceRowOrderFollowsTree(t *testing.T) {
	report := BuildTrialBalance(testTree(), nil, nil)
	var codes []string
	for _, line := range report.Lines {
		codes = append(codes, line.AccountCode)
	}
	assert.Equal(t, []string{"1000", "1100", "1200", "4000"}, codes)
}

func TestVariancePercentDefinition(t *testing.T) {
	rows := []journal.GLTransaction{glRow("1100", 300, 0)}
	prior := map[string]float64{"1100": -200}
	report := BuildTrialBalance(testTree(), rows, prior)

	var cash TrialBalanceLine
	for _, line := range report.Lines {
		if line.AccountCode == "1100" {
			cash = line
		}
	}
	assert.Equal(t, 300.0, cash.CurrentNet)
	assert.Equal(t, -200.0, cash.PriorNet)
	assert.Equal(t, 500.0, cash.Variance)
	// (300 - (-200)) / |-200| * 100
	assert.InDelta(t, 250.0, cash.VariancePercent, 0.001)
}

func TestVariancePercentZeroWhenPriorZero(t *testing.T) {
	rows := []journal.GLTransaction{glRow("1100", 300, 0)}
	report := BuildTrialBalance(testTree(), rows, map[string]float64{})

	for _, line := range report.Lines {
		assert.Equal(t, 0.0, line.VariancePercent, "account %s", line.AccountCode)
	}
}

type stubLedger struct {
	rows  []journal.GLTransaction
	calls int
}

func (s *stubLedger) GLTransactions(context.Context, string) ([]journal.GLTransaction, error) {
	s.calls++
	return s.rows, nil
}

type stubChart struct{}

func (stubChart) Tree(context.Context, string) ([]accounts.TreeNode, error) {
	return testTree(), nil
}

func TestServiceFiltersPeriod(t *testing.T) {
	ledger := &stubLedger{rows: []journal.GLTransaction{
		glRow("1100", 100, 0),
		{AccountID: "1100", Debit: 999, Period: "2024-12"},
	}}
	svc := NewService(ledger, stubChart{}, StaticPriorSource{}, nil)

	report, err := svc.TrialBalance(context.Background(), "1", "2025-01")
	require.NoError(t, err)
	for _, line := range report.Lines {
		if line.AccountCode == "1100" {
			assert.Equal(t, 100.0, line.CurrentNet)
		}
	}
}

func TestServiceCachesUntilBumped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ledger := &stubLedger{rows: []journal.GLTransaction{glRow("1100", 100, 0)}}
	svc := NewService(ledger, stubChart{}, StaticPriorSource{}, NewCache(client, time.Minute))
	ctx := context.Background()

	_, err := svc.TrialBalance(ctx, "1", "2025-01")
	require.NoError(t, err)
	_, err = svc.TrialBalance(ctx, "1", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.TrialBalance(ctx, "1", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.calls)
}

func TestCacheRepairsCorruptVersionCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, cacheVersionKey, -3, 0).Err())
	ver, err := NewCache(client, time.Minute).Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestFetchJSONRebuildsCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "tb:bad", "{not json", 0).Err())
	cache := NewCache(client, time.Minute)

	calls := 0
	got, err := FetchJSON(ctx, cache, "tb:bad", func(context.Context) (TrialBalance, error) {
		calls++
		return TrialBalance{TotalDebit: 42}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 42.0, got.TotalDebit)

	// the rebuilt payload replaced the corrupt one
	got, err = FetchJSON(ctx, cache, "tb:bad", func(context.Context) (TrialBalance, error) {
		calls++
		return TrialBalance{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 42.0, got.TotalDebit)
}

func TestLedgerWritesInvalidateCachedReport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := kv.NewMemoryStore()
	chart := accounts.NewService(accounts.NewRepository(store))
	_, err := chart.List(ctx, "9") // install the default chart
	require.NoError(t, err)
	journals := journal.NewService(store, chart)
	svc := NewService(journals, chart, StaticPriorSource{}, NewCache(client, time.Minute))
	journals.WithInvalidator(svc, nil)

	post := func(amount float64) {
		entry := journal.JournalEntry{
			CompanyID:       "9",
			TransactionDate: "2025-01-06",
			Period:          "2025-01",
			Type:            journal.JournalTypeGeneral,
			Status:          journal.JournalStatusPosted,
			Lines: []journal.JournalLine{
				{AccountID: "1110", Debit: amount},
				{AccountID: "4100", Credit: amount},
			},
		}
		_, err := journals.Save(ctx, entry)
		require.NoError(t, err)
	}

	post(100)
	report, err := svc.TrialBalance(ctx, "9", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.TotalDebit)

	// a second posting must show up immediately, not after cache expiry
	post(50)
	report, err = svc.TrialBalance(ctx, "9", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 150.0, report.TotalDebit)
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	rows := []journal.GLTransaction{glRow("1100", 1234567.5, 0)}
	report := BuildTrialBalance(testTree(), rows, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteTrialBalanceCSV(&buf, report))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Account Code,"))
	assert.Contains(t, out, "1,234,567.50")
	assert.Contains(t, out, "TOTAL")
}
