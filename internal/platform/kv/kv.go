// Package kv provides versioned JSON collection storage with optimistic
// concurrency. A collection is a named set of JSON documents guarded by a
// monotonically increasing version stamp; writers must present the version
// they read, and a mismatch fails the write instead of losing it.
package kv

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrVersionConflict indicates the collection changed between load and store.
	ErrVersionConflict = errors.New("kv: version conflict")
	// ErrNotFound indicates a document lookup missed.
	ErrNotFound = errors.New("kv: document not found")
	// ErrDuplicateKey indicates an insert collided with an existing key.
	ErrDuplicateKey = errors.New("kv: duplicate key")
)

// Snapshot is a point-in-time view of a collection.
type Snapshot struct {
	Docs    []json.RawMessage
	Version int64
}

// Store is the low-level collection storage contract. Version 0 means the
// collection does not exist yet; storing with expectVersion 0 creates it.
type Store interface {
	Load(ctx context.Context, collection string) (Snapshot, error)
	Store(ctx context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error)
	Drop(ctx context.Context, collection string) error
}
