package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(NewRepository(kv.NewMemoryStore()))
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) })
	return svc
}

func TestListSeedsDefaultChartOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.List(ctx, "1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.List(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))

	// seed is per tenant
	other, err := svc.List(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, len(first), len(other))
}

func TestSaveRejectsMissingParent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Save(ctx, Account{CompanyID: "1", Code: "9999", Name: "Orphan", Type: AccountTypeAsset, ParentCode: "8888"})
	assert.ErrorIs(t, err, ErrParentMissing)
}

func TestSaveRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Save(ctx, Account{CompanyID: "1", Code: "9999", Name: "Weird", Type: "CONTRA"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestSaveRejectsCycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Save(ctx, Account{CompanyID: "1", Code: "7000", Name: "A", Type: AccountTypeAsset})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "7100", Name: "B", Type: AccountTypeAsset, ParentCode: "7000"})
	require.NoError(t, err)

	// re-parent 7000 under its own descendant
	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "7000", Name: "A", Type: AccountTypeAsset, ParentCode: "7100"})
	assert.ErrorIs(t, err, ErrCycle)
}

func TestDeleteGuards(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.List(ctx, "1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "1", "1000"), ErrSystemAccount)
	assert.ErrorIs(t, svc.Delete(ctx, "1", "1100"), ErrSystemAccount)

	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "6000", Name: "Custom Parent", Type: AccountTypeExpense})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "6100", Name: "Custom Child", Type: AccountTypeExpense, ParentCode: "6000"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, "1", "6000"), ErrHasChildren)

	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "6200", Name: "Funded", Type: AccountTypeExpense, Balance: 12.5})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, "1", "6200"), ErrNonZeroBalance)

	// rejected deletes leave the store unchanged
	got, err := svc.Get(ctx, "1", "6200")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Balance)

	require.NoError(t, svc.Delete(ctx, "1", "6100"))
	require.NoError(t, svc.Delete(ctx, "1", "6000"))
}

func TestTreeOrderingAndLevels(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// insertion order must not leak into sibling ordering
	_, err := svc.Save(ctx, Account{CompanyID: "1", Code: "6900", Name: "Z", Type: AccountTypeExpense})
	require.NoError(t, err)
	_, err = svc.Save(ctx, Account{CompanyID: "1", Code: "6100", Name: "A", Type: AccountTypeExpense})
	require.NoError(t, err)

	tree, err := svc.Tree(ctx, "1")
	require.NoError(t, err)
	require.NotEmpty(t, tree)

	var codes []string
	for _, node := range tree {
		assert.Equal(t, 0, node.Level)
		codes = append(codes, node.Code)
	}
	assert.IsNonDecreasing(t, codes)

	root := tree[0]
	require.NotEmpty(t, root.Children)
	assert.Equal(t, 1, root.Children[0].Level)
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Save(ctx, Account{CompanyID: "1", Code: "8100", Name: "Tenant One Only", Type: AccountTypeAsset})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "2", "8100")
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := svc.List(ctx, "2")
	require.NoError(t, err)
	for _, a := range other {
		assert.Equal(t, "2", a.CompanyID)
	}
}
