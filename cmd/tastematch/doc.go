// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package main is the entry point for the tastematch batch recommender.
//
// Tastematch reads a media library (candidates plus per-user watch history),
// builds a taste profile per user and media kind, scores every unwatched
// title against it and writes a tiered, diversified selection per user as a
// JSON report.
//
// # Application Architecture
//
// Components are initialized in this order:
//
//  1. Configuration: defaults, config file, TASTEMATCH_* environment, flags (Koanf v2)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Catalog: the library file, wrapped in a retrying circuit breaker
//  4. Score cache: memory, file, BadgerDB or Redis
//  5. Pipeline engine: profile, scoring, selection
//  6. Batch service: a single run, or periodic runs under a suture tree
//  7. Status server (periodic mode, metrics enabled): health, /metrics, latest results
//
// # Modes
//
// With schedule.interval unset (or --once) a single batch runs, the report is
// written and the process exits. Exit status is 1 when the batch could not
// run at all; per-user failures are reported in the JSON, not the exit code.
//
// With an interval the process stays up and reruns the batch on schedule,
// rewriting the report after each run.
//
// # Example Usage
//
//	tastematch --library library.json --users alice,bob --kinds movie
//
//	TASTEMATCH_CACHE_BACKEND=badger \
//	TASTEMATCH_INTERVAL=6h \
//	TASTEMATCH_METRICS__ENABLED=true \
//	tastematch --config /etc/tastematch/config.yaml --output /data/report.json
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the running batch. Results finished so far are
// still reported and pending cache writes are flushed before exit.
package main
