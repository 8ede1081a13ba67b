// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// TTL expires entries that are not rewritten (0 = never).
	TTL time.Duration
}

// RedisStore keeps one key per entry in Redis. SET replaces the whole value
// atomically, which gives the required full-entry replacement.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // connection never became usable
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "tastematch"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, scope, candidateID string) (Entry, bool, error) {
	val, err := s.client.Get(ctx, s.key(scope, candidateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, &recommend.CacheCorruptionError{Scope: scope, Err: err}
	}
	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return Entry{}, false, &recommend.CacheCorruptionError{Scope: scope, Err: fmt.Errorf("decode entry: %w", err)}
	}
	return entry, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, scope, candidateID string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.client.Set(ctx, s.key(scope, candidateID), data, s.ttl).Err()
}

// Flush implements Store. Writes are durable per Redis persistence settings.
func (s *RedisStore) Flush(context.Context) error { return nil }

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(scope, candidateID string) string {
	return s.prefix + ":score:" + scope + ":" + candidateID
}
