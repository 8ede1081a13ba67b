// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// SchemaVersion is embedded in every entry. Entries written under another
// version are treated as misses and overwritten.
const SchemaVersion = 1

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("score store closed")

// Entry is the persisted form of one score.
type Entry struct {
	// Schema is the entry layout version.
	Schema int `json:"schema"`

	// Fingerprint is the profile fingerprint the score was computed against.
	Fingerprint string `json:"fingerprint"`

	// ScorerDigest identifies the scoring parameters used.
	ScorerDigest string `json:"scorer_digest"`

	// Result is the cached score.
	Result recommend.ScoreResult `json:"result"`

	// ComputedAt is when the score was computed.
	ComputedAt time.Time `json:"computed_at"`
}

// Store persists entries. A scope groups the entries of one (user, media kind)
// pair and holds at most one entry per candidate. Implementations must be
// safe for concurrent use and must replace entries whole.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the entry for candidateID. A read or decode failure is
	// reported as a *recommend.CacheCorruptionError; callers treat it as a miss.
	Get(ctx context.Context, scope, candidateID string) (Entry, bool, error)

	// Put replaces the entry for candidateID.
	Put(ctx context.Context, scope, candidateID string, entry *Entry) error

	// Flush makes every Put durable. Backends that persist on Put may no-op.
	Flush(ctx context.Context) error

	// Close flushes and releases resources.
	Close() error
}
