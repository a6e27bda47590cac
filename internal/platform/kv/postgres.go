package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each collection as a single jsonb row guarded by a
// version column. Conditional UPDATEs enforce the optimistic check.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing table when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_collections (
			name TEXT PRIMARY KEY,
			version BIGINT NOT NULL,
			docs JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("kv: ensure schema: %w", err)
	}
	return nil
}

// Load implements Store.
func (p *PostgresStore) Load(ctx context.Context, collection string) (Snapshot, error) {
	var version int64
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT version, docs FROM kv_collections WHERE name = $1`, collection,
	).Scan(&version, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("kv: postgres load %s: %w", collection, err)
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(payload, &docs); err != nil {
		return Snapshot{}, fmt.Errorf("kv: postgres decode %s: %w", collection, err)
	}
	return Snapshot{Docs: docs, Version: version}, nil
}

// Store implements Store.
func (p *PostgresStore) Store(ctx context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error) {
	if docs == nil {
		docs = []json.RawMessage{}
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return 0, err
	}
	next := expectVersion + 1
	if expectVersion == 0 {
		tag, err := p.pool.Exec(ctx, `
			INSERT INTO kv_collections (name, version, docs) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`, collection, next, payload)
		if err != nil {
			return 0, fmt.Errorf("kv: postgres insert %s: %w", collection, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
		return next, nil
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE kv_collections SET version = $2, docs = $3, updated_at = now()
		WHERE name = $1 AND version = $4`, collection, next, payload, expectVersion)
	if err != nil {
		return 0, fmt.Errorf("kv: postgres update %s: %w", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

// Drop implements Store.
func (p *PostgresStore) Drop(ctx context.Context, collection string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM kv_collections WHERE name = $1`, collection)
	return err
}
