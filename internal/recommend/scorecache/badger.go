// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// scoreKeyPrefix prefixes every score entry key.
const scoreKeyPrefix = "score:"

// BadgerStore keeps one key per entry in BadgerDB. Every Put is its own
// transaction, so an entry is replaced whole or not at all.
type BadgerStore struct {
	db   *badger.DB
	owns bool
}

// NewBadgerStore wraps an open database. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a database at path owned by the store.
func OpenBadgerStore(path string, syncWrites bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = syncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, owns: true}, nil
}

// Name implements Store.
func (s *BadgerStore) Name() string { return "badger" }

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, scope, candidateID string) (Entry, bool, error) {
	var entry Entry
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(scope, candidateID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return Entry{}, false, ErrStoreClosed
	}
	if err != nil {
		return Entry{}, false, &recommend.CacheCorruptionError{Scope: scope, Err: err}
	}
	return entry, found, nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, scope, candidateID string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(scope, candidateID), data)
	})
}

// Flush implements Store.
func (s *BadgerStore) Flush(context.Context) error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("sync BadgerDB: %w", err)
	}
	return nil
}

// Close implements Store. A database passed to NewBadgerStore stays open.
func (s *BadgerStore) Close() error {
	if !s.owns {
		return s.Flush(context.Background())
	}
	return s.db.Close()
}

func entryKey(scope, candidateID string) []byte {
	return []byte(scoreKeyPrefix + scope + "\x00" + candidateID)
}
