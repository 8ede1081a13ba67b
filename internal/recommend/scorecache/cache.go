// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package scorecache memoizes candidate scores across runs.
//
// An entry is reused iff its fingerprint equals the current profile
// fingerprint and it was produced by a scorer with the same digest and the
// current schema version. Anything else is stale and is recomputed and
// overwritten whole. Store read failures degrade to a cold start.
package scorecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
)

// ScoreFunc computes a score on a cache miss.
type ScoreFunc func(c *recommend.Candidate) recommend.ScoreResult

// Outcome describes how one lookup was served.
type Outcome struct {
	// Hit is true when the cached result was returned unchanged.
	Hit bool

	// Corrupt is true when the store could not be read for this lookup.
	Corrupt bool

	// WriteErr is set when the fresh result could not be stored.
	WriteErr error

	// Transient is true when a computed result was deliberately not stored.
	Transient bool
}

// Stats are cumulative lookup counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Stale       int64 `json:"stale"`
	Corruptions int64 `json:"corruptions"`
	WriteErrors int64 `json:"write_errors"`
}

// Cache fronts a Store. Reads run concurrently; writes are serialized by a
// single store-wide lock.
type Cache struct {
	store  Store
	digest string
	logger zerolog.Logger
	now    func() time.Time

	writeMu sync.Mutex

	hits        atomic.Int64
	misses      atomic.Int64
	stale       atomic.Int64
	corruptions atomic.Int64
	writeErrors atomic.Int64
}

// New creates a cache over store for results of a scorer with digest.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(store Store, digest string, logger zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		digest: digest,
		logger: logger.With().Str("component", "scorecache").Str("store", store.Name()).Logger(),
		now:    time.Now,
	}
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

// GetOrCompute returns the cached result for cand when it is valid for p,
// otherwise computes it with score, stores it and returns it. The returned
// result is always usable; Outcome reports cache health.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	scope string,
	cand *recommend.Candidate,
	p *recommend.TasteProfile,
	score ScoreFunc,
) (recommend.ScoreResult, Outcome) {
	return c.getOrCompute(ctx, scope, cand, p, score, true)
}

// GetOrComputeTransient is GetOrCompute for a candidate whose attributes are
// incomplete for this run only. A valid cached result is still served, but a
// computed one is returned without being stored.
func (c *Cache) GetOrComputeTransient(
	ctx context.Context,
	scope string,
	cand *recommend.Candidate,
	p *recommend.TasteProfile,
	score ScoreFunc,
) (recommend.ScoreResult, Outcome) {
	return c.getOrCompute(ctx, scope, cand, p, score, false)
}

func (c *Cache) getOrCompute(
	ctx context.Context,
	scope string,
	cand *recommend.Candidate,
	p *recommend.TasteProfile,
	score ScoreFunc,
	persist bool,
) (recommend.ScoreResult, Outcome) {
	var out Outcome
	storeName := c.store.Name()

	entry, ok, err := c.store.Get(ctx, scope, cand.TitleID)
	reason := "absent"
	switch {
	case err != nil:
		out.Corrupt = errors.Is(err, recommend.ErrCacheCorruption)
		if out.Corrupt {
			c.corruptions.Add(1)
			metrics.ScoreCacheCorruptions.WithLabelValues(storeName).Inc()
		}
		reason = "corrupt"
		c.logger.Warn().Err(err).Str("scope", scope).Str("candidate", cand.TitleID).
			Msg("score cache read failed, recomputing")
	case ok && c.valid(&entry, cand, p):
		c.hits.Add(1)
		metrics.RecordCacheLookup(storeName, true, "")
		out.Hit = true
		return entry.Result, out
	case ok:
		reason = "stale"
		c.stale.Add(1)
	}

	c.misses.Add(1)
	metrics.RecordCacheLookup(storeName, false, reason)

	result := score(cand)
	if !persist {
		out.Transient = true
		return result, out
	}
	fresh := Entry{
		Schema:       SchemaVersion,
		Fingerprint:  p.Fingerprint,
		ScorerDigest: c.digest,
		Result:       result,
		ComputedAt:   c.now().UTC(),
	}

	c.writeMu.Lock()
	werr := c.store.Put(ctx, scope, cand.TitleID, &fresh)
	c.writeMu.Unlock()
	if werr != nil {
		c.writeErrors.Add(1)
		out.WriteErr = werr
		c.logger.Warn().Err(werr).Str("scope", scope).Str("candidate", cand.TitleID).
			Msg("score cache write failed")
	}
	return result, out
}

// Flush persists pending writes.
func (c *Cache) Flush(ctx context.Context) error {
	start := time.Now()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := c.store.Flush(ctx)
	metrics.ScoreCacheWriteDuration.WithLabelValues(c.store.Name()).Observe(time.Since(start).Seconds())
	return err
}

// Close flushes and closes the store.
func (c *Cache) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.store.Close()
}

// Stats returns a snapshot of the lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Stale:       c.stale.Load(),
		Corruptions: c.corruptions.Load(),
		WriteErrors: c.writeErrors.Load(),
	}
}

func (c *Cache) valid(e *Entry, cand *recommend.Candidate, p *recommend.TasteProfile) bool {
	return e.Schema == SchemaVersion &&
		e.Fingerprint == p.Fingerprint &&
		e.ScorerDigest == c.digest &&
		e.Result.CandidateID == cand.TitleID
}

// Scope returns the scope key for a (user, media kind) pair.
func Scope(user string, kind recommend.Kind) string {
	return user + "/" + string(kind)
}
