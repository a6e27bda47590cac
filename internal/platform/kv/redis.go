package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisEnvelope struct {
	Version int64             `json:"version"`
	Docs    []json.RawMessage `json:"docs"`
}

// RedisStore persists collections as versioned JSON envelopes in Redis.
// Conditional writes use WATCH/MULTI so concurrent writers cannot clobber
// each other's read-modify-write cycles.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a Redis client. The prefix namespaces collection keys.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "nexus"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(collection string) string {
	return fmt.Sprintf("%s:coll:%s", r.prefix, collection)
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, collection string) (Snapshot, error) {
	payload, err := r.client.Get(ctx, r.key(collection)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("kv: redis load %s: %w", collection, err)
	}
	var env redisEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Snapshot{}, fmt.Errorf("kv: redis decode %s: %w", collection, err)
	}
	return Snapshot{Docs: env.Docs, Version: env.Version}, nil
}

// Store implements Store.
func (r *RedisStore) Store(ctx context.Context, collection string, docs []json.RawMessage, expectVersion int64) (int64, error) {
	key := r.key(collection)
	next := expectVersion + 1
	txn := func(tx *redis.Tx) error {
		var current int64
		payload, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			current = 0
		case err != nil:
			return err
		default:
			var env redisEnvelope
			if err := json.Unmarshal(payload, &env); err != nil {
				return err
			}
			current = env.Version
		}
		if current != expectVersion {
			return ErrVersionConflict
		}
		out, err := json.Marshal(redisEnvelope{Version: next, Docs: docs})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}
	if err := r.client.Watch(ctx, txn, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return 0, ErrVersionConflict
		}
		if errors.Is(err, ErrVersionConflict) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("kv: redis store %s: %w", collection, err)
	}
	return next, nil
}

// Drop implements Store.
func (r *RedisStore) Drop(ctx context.Context, collection string) error {
	return r.client.Del(ctx, r.key(collection)).Err()
}
