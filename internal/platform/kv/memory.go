package kv

import (
	"context"
	"encoding/json"
	"sync"
)

type memoryCollection struct {
	docs    []json.RawMessage
	version int64
}

// MemoryStore is an in-process Store used by tests and standalone mode.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]memoryCollection
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]memoryCollection)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, collection string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return Snapshot{}, nil
	}
	docs := make([]json.RawMessage, len(coll.docs))
	copy(docs, coll.docs)
	return Snapshot{Docs: docs, Version: coll.version}, nil
}

// Store implements Store with a conditional write on the version stamp.
func (m *MemoryStore) Store(_ context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.collections[collection]
	if current.version != expectVersion {
		return 0, ErrVersionConflict
	}
	stored := make([]json.RawMessage, len(docs))
	copy(stored, docs)
	next := current.version + 1
	m.collections[collection] = memoryCollection{docs: stored, version: next}
	return next, nil
}

// Drop implements Store.
func (m *MemoryStore) Drop(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}
