// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. It is used by tests and by
// runs with the persistent cache disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]Entry)}
}

// Name implements Store.
func (m *MemoryStore) Name() string { return "memory" }

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, scope, candidateID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Entry{}, false, ErrStoreClosed
	}
	e, ok := m.entries[scope][candidateID]
	return e, ok, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, scope, candidateID string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	s, ok := m.entries[scope]
	if !ok {
		s = make(map[string]Entry)
		m.entries[scope] = s
	}
	s[candidateID] = *entry
	return nil
}

// Flush implements Store.
func (m *MemoryStore) Flush(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of entries in scope.
func (m *MemoryStore) Len(scope string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[scope])
}
