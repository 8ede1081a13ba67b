// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package pipeline

import (
	"time"

	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/selection"
)

// Outcome of one (user, kind) run.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// UserResult is the outcome for one (user, kind) pair.
type UserResult struct {
	User   string         `json:"user"`
	Kind   recommend.Kind `json:"media_kind"`
	Status string         `json:"status"`

	// Error describes why the pair was skipped or failed.
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`

	// Fingerprint and ProfileItems describe the profile used.
	Fingerprint  string `json:"fingerprint,omitempty"`
	ProfileItems int    `json:"profile_items"`

	// Selection holds the recommendations. Nil unless Status is ok.
	Selection *selection.Selection `json:"selection,omitempty"`

	Scored            int `json:"scored"`
	CacheHits         int `json:"cache_hits"`
	CacheMisses       int `json:"cache_misses"`
	CacheCorruptions  int `json:"cache_corruptions"`
	CacheWriteErrors  int `json:"cache_write_errors"`
	MissingAttributes int `json:"missing_attributes"`

	Duration time.Duration `json:"duration"`
}

// RunSummary aggregates one batch.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Users counts (user, kind) pairs attempted.
	Users     int `json:"users"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Short counts successful pairs that got fewer items than requested.
	Short int `json:"short"`

	CacheHits         int `json:"cache_hits"`
	CacheMisses       int `json:"cache_misses"`
	CacheCorruptions  int `json:"cache_corruptions"`
	CacheWriteErrors  int `json:"cache_write_errors"`
	LookupFailures    int `json:"lookup_failures"`
	MissingAttributes int `json:"missing_attributes"`

	// CacheFlushError is set when pending cache writes could not be persisted.
	CacheFlushError string `json:"cache_flush_error,omitempty"`

	// Canceled is true when the run stopped early.
	Canceled bool `json:"canceled"`

	Results []UserResult `json:"results"`
}

// add folds r into the totals.
func (s *RunSummary) add(r *UserResult) {
	s.Users++
	switch r.Status {
	case StatusOK:
		s.Succeeded++
		if r.Selection != nil && r.Selection.Short {
			s.Short++
		}
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
	s.CacheHits += r.CacheHits
	s.CacheMisses += r.CacheMisses
	s.CacheCorruptions += r.CacheCorruptions
	s.CacheWriteErrors += r.CacheWriteErrors
	s.MissingAttributes += r.MissingAttributes
	s.Results = append(s.Results, *r)
}
