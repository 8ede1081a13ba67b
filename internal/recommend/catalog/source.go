// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package catalog defines the metadata catalog boundary and its
// implementations: a file-backed library for offline runs and a resilient
// wrapper that puts timeouts, retries, rate limiting, a circuit breaker and
// a memo cache in front of any Source.
package catalog

import (
	"context"
	"errors"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// ErrNotFound is returned by Lookup for unknown titles.
var ErrNotFound = errors.New("title not found in catalog")

// Source lists recommendation candidates and resolves full title metadata.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Candidates lists unwatched-eligible titles of kind with whatever
	// attributes the listing carries.
	Candidates(ctx context.Context, kind recommend.Kind) ([]recommend.Candidate, error)

	// Lookup returns full metadata for one title.
	Lookup(ctx context.Context, kind recommend.Kind, titleID string) (recommend.Candidate, error)
}

// Enrich fills the attributes c lacks from full, keeping anything c already
// has. Catalog fields (rating, votes, popularity, title, year) are taken from
// full when c leaves them unset.
func Enrich(c, full *recommend.Candidate) {
	if len(c.Genres) == 0 {
		c.Genres = full.Genres
	}
	if len(c.Keywords) == 0 {
		c.Keywords = full.Keywords
	}
	if len(c.TopCast) == 0 {
		c.TopCast = full.TopCast
	}
	if c.Director == "" {
		c.Director = full.Director
	}
	if c.CollectionID == "" {
		c.CollectionID = full.CollectionID
	}
	if c.Title == "" {
		c.Title = full.Title
	}
	if c.Year == 0 {
		c.Year = full.Year
	}
	if c.Rating == 0 {
		c.Rating = full.Rating
	}
	if c.VoteCount == 0 {
		c.VoteCount = full.VoteCount
	}
	if c.Popularity == 0 {
		c.Popularity = full.Popularity
	}
}
