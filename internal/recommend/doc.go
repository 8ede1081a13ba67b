// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package recommend holds the shared data model, configuration and error
// taxonomy of the taste-profile recommendation core.
//
// # Architecture
//
// The core is split into leaf packages that depend only on this one:
//
//   - profile: builds a weighted TasteProfile from a user's watch events
//   - scoring: scores one Candidate against one TasteProfile
//   - scorecache: memoizes scores keyed by candidate and profile fingerprint
//   - selection: filters and samples the final recommendation list
//   - catalog: candidate and history sources, plus resilient remote lookups
//   - pipeline: runs the above once per (user, media kind) pair
//
// # Design Principles
//
//   - Deterministic: identical inputs produce bit-identical profiles, scores
//     and (for a fixed seed) selections
//   - Explicit configuration: every component receives a validated *Config;
//     there are no package-level mutable defaults
//   - Isolated failures: a bad event, candidate or user never aborts the batch
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	if err := cfg.Validate(); err != nil {
//	    return err // weight problems wrap ErrInvalidWeightConfig
//	}
//	builder, _ := profile.NewBuilder(cfg, recommend.Movie{}, logger)
//	p, report := builder.Build("alice", events, time.Now())
//	scorer, _ := scoring.New(cfg, logger)
//	result := scorer.Score(&candidate, p)
package recommend
