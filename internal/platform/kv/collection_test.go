package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Code string `json:"code"`
	Qty  int    `json:"qty"`
}

func widgetKey(w widget) string { return w.Code }

func newTestCollection(t *testing.T) *Collection[widget] {
	t.Helper()
	return NewCollection(NewMemoryStore(), "widgets", widgetKey)
}

func TestCollectionInsertAndFind(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1", Qty: 3}))
	require.NoError(t, coll.Insert(ctx, widget{Code: "W-2", Qty: 5}))

	all, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := coll.Find(ctx, func(w widget) bool { return w.Qty > 4 })
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "W-2", some[0].Code)
}

func TestCollectionInsertDuplicateKey(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1"}))
	err := coll.Insert(ctx, widget{Code: "W-1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestCollectionUpdateMissing(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	err := coll.Update(ctx, "nope", func(w widget) widget { return w })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1", Qty: 1}))
	require.NoError(t, coll.Upsert(ctx, widget{Code: "W-1", Qty: 9}))

	got, err := coll.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Qty)

	all, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCollectionDelete(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1"}))
	require.NoError(t, coll.Delete(ctx, "W-1"))

	_, err := coll.Get(ctx, "W-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, coll.Delete(ctx, "W-1"), ErrNotFound)
}

func TestCollectionOverride(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1"}))
	require.NoError(t, coll.Override(ctx, []widget{{Code: "W-7"}, {Code: "W-8"}}))

	all, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "W-7", all[0].Code)
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v1, err := store.Store(ctx, "c", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	_, err = store.Store(ctx, "c", nil, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	v2, err := store.Store(ctx, "c", nil, v1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)
}

func TestCollectionRetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{inner: NewMemoryStore(), conflicts: 2}
	coll := NewCollection[widget](store, "widgets", widgetKey)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1"}))
	got, err := coll.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, "W-1", got.Code)
}

func TestCollectionRetriesAfterWrappedConflict(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{inner: NewMemoryStore(), conflicts: 2, wrap: true}
	coll := NewCollection[widget](store, "widgets", widgetKey)

	require.NoError(t, coll.Insert(ctx, widget{Code: "W-1"}))
	got, err := coll.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, "W-1", got.Code)
}

// flakyStore forces the first n conditional writes to conflict, optionally
// wrapping the sentinel the way a real backend annotates its errors.
type flakyStore struct {
	inner     Store
	conflicts int
	wrap      bool
}

func (f *flakyStore) Load(ctx context.Context, collection string) (Snapshot, error) {
	return f.inner.Load(ctx, collection)
}

func (f *flakyStore) Store(ctx context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error) {
	if f.conflicts > 0 {
		f.conflicts--
		if f.wrap {
			return 0, fmt.Errorf("kv: store %q: %w", collection, ErrVersionConflict)
		}
		return 0, ErrVersionConflict
	}
	return f.inner.Store(ctx, collection, docs, expectVersion)
}

func (f *flakyStore) Drop(ctx context.Context, collection string) error {
	return f.inner.Drop(ctx, collection)
}
