package blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

// Store adapts the gateway into the kv.Store contract. The version stamp
// travels inside the saved payload; the remote cannot enforce the check
// server-side, so the compare happens on the freshly loaded envelope. A
// writer racing between that load and the save can still win — acceptable
// for the blob backend, which is a single-writer deployment target.
type Store struct {
	client *Client
}

// NewStore wraps a gateway client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

type envelope struct {
	Version int64             `json:"version"`
	Docs    []json.RawMessage `json:"docs"`
}

func collectionKey(collection string) string {
	return "collections/" + collection
}

// Load implements kv.Store. Gateway reads are fail-open, so an unreachable
// backend presents as an empty collection at version 0.
func (s *Store) Load(ctx context.Context, collection string) (kv.Snapshot, error) {
	docs, err := s.client.Load(ctx, collectionKey(collection))
	if err != nil {
		return kv.Snapshot{}, err
	}
	if len(docs) == 0 {
		return kv.Snapshot{}, nil
	}
	var env envelope
	if err := json.Unmarshal(docs[0], &env); err != nil {
		return kv.Snapshot{}, nil
	}
	return kv.Snapshot{Docs: env.Docs, Version: env.Version}, nil
}

// Store implements kv.Store.
func (s *Store) Store(ctx context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error) {
	current, err := s.Load(ctx, collection)
	if err != nil {
		return 0, err
	}
	if current.Version != expectVersion {
		return 0, kv.ErrVersionConflict
	}
	next := expectVersion + 1
	payload, err := json.Marshal(envelope{Version: next, Docs: docs})
	if err != nil {
		return 0, err
	}
	if _, err := s.client.Save(ctx, collectionKey(collection), []json.RawMessage{payload}); err != nil {
		return 0, fmt.Errorf("blob: store %s: %w", collection, err)
	}
	return next, nil
}

// Drop implements kv.Store by overwriting with an empty envelope.
func (s *Store) Drop(ctx context.Context, collection string) error {
	payload, err := json.Marshal(envelope{})
	if err != nil {
		return err
	}
	_, err = s.client.Save(ctx, collectionKey(collection), []json.RawMessage{payload})
	return err
}
