// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package cache provides a thread-safe in-memory LRU cache with TTL support.

It memoizes catalog attribute lookups within and across batch runs so that a
candidate enriched for one user is not fetched again for the next.

# Overview

The cache provides:
  - Generic values (LRU[V])
  - Least-recently-used eviction at a fixed capacity
  - Time-to-live expiration checked lazily on access
  - GetOrLoad for read-through use
  - Hit, miss, eviction and expiry counters

# Usage Example

	c := cache.NewLRU[recommend.Candidate](5000, 30*time.Minute)

	cand, hit, err := c.GetOrLoad("movie/tt0111161", func() (recommend.Candidate, error) {
	    return source.Lookup(ctx, recommend.KindMovie, "tt0111161")
	})

# Persistence

Entries live only in process memory. Durable score caching is handled by
the scorecache package.
*/
package cache
