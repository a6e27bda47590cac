package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// retryAttempts bounds how often a mutation is retried after a version
// conflict before the conflict is surfaced to the caller.
const retryAttempts = 3

// Collection is a typed view over a named collection. Key extracts the
// unique document key; mutations are conditional writes retried on conflict.
type Collection[T any] struct {
	store Store
	name  string
	key   func(T) string
}

// NewCollection binds a typed collection to its backing store.
func NewCollection[T any](store Store, name string, key func(T) string) *Collection[T] {
	return &Collection[T]{store: store, name: name, key: key}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) decode(snap Snapshot) ([]T, error) {
	items := make([]T, 0, len(snap.Docs))
	for _, raw := range snap.Docs {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("kv: decode %s: %w", c.name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func encode[T any](items []T) ([]json.RawMessage, error) {
	docs := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, raw)
	}
	return docs, nil
}

// Find returns all documents matching the predicate; a nil predicate
// matches everything.
func (c *Collection[T]) Find(ctx context.Context, predicate func(T) bool) ([]T, error) {
	snap, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, err
	}
	items, err := c.decode(snap)
	if err != nil {
		return nil, err
	}
	if predicate == nil {
		return items, nil
	}
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if predicate(item) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// FindOne returns the first document matching the predicate or ErrNotFound.
func (c *Collection[T]) FindOne(ctx context.Context, predicate func(T) bool) (T, error) {
	var zero T
	items, err := c.Find(ctx, predicate)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNotFound
	}
	return items[0], nil
}

// Get returns the document with the given key or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	return c.FindOne(ctx, func(item T) bool { return c.key(item) == key })
}

// mutate runs a load/modify/conditional-store cycle, retrying on conflict.
func (c *Collection[T]) mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		snap, err := c.store.Load(ctx, c.name)
		if err != nil {
			return err
		}
		items, err := c.decode(snap)
		if err != nil {
			return err
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		docs, err := encode(next)
		if err != nil {
			return err
		}
		if _, err := c.store.Store(ctx, c.name, docs, snap.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

// Insert appends a document; its key must not already exist.
func (c *Collection[T]) Insert(ctx context.Context, item T) error {
	key := c.key(item)
	return c.mutate(ctx, func(items []T) ([]T, error) {
		for _, existing := range items {
			if c.key(existing) == key {
				return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, c.name, key)
			}
		}
		return append(items, item), nil
	})
}

// InsertMany appends documents, rejecting the batch when any key collides.
func (c *Collection[T]) InsertMany(ctx context.Context, batch []T) error {
	if len(batch) == 0 {
		return nil
	}
	return c.mutate(ctx, func(items []T) ([]T, error) {
		seen := make(map[string]struct{}, len(items)+len(batch))
		for _, existing := range items {
			seen[c.key(existing)] = struct{}{}
		}
		for _, item := range batch {
			key := c.key(item)
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, c.name, key)
			}
			seen[key] = struct{}{}
		}
		return append(items, batch...), nil
	})
}

// Update applies fn to the document with the given key.
func (c *Collection[T]) Update(ctx context.Context, key string, fn func(T) T) error {
	return c.mutate(ctx, func(items []T) ([]T, error) {
		for idx, existing := range items {
			if c.key(existing) == key {
				items[idx] = fn(existing)
				return items, nil
			}
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, key)
	})
}

// Upsert replaces the document with a matching key or appends it.
func (c *Collection[T]) Upsert(ctx context.Context, item T) error {
	key := c.key(item)
	return c.mutate(ctx, func(items []T) ([]T, error) {
		for idx, existing := range items {
			if c.key(existing) == key {
				items[idx] = item
				return items, nil
			}
		}
		return append(items, item), nil
	})
}

// Delete removes the document with the given key.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.mutate(ctx, func(items []T) ([]T, error) {
		for idx, existing := range items {
			if c.key(existing) == key {
				return append(items[:idx], items[idx+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, key)
	})
}

// Override replaces the entire collection contents.
func (c *Collection[T]) Override(ctx context.Context, items []T) error {
	return c.mutate(ctx, func([]T) ([]T, error) {
		return items, nil
	})
}
