// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package metrics provides Prometheus metrics for the recommendation batch.

All collectors are registered with the default registry through promauto and
are safe for concurrent use.

# Available Metrics

Profile Metrics:
  - tastematch_profile_builds_total: Profiles built (counter)
    Labels: kind
  - tastematch_profile_events_skipped_total: Malformed events skipped (counter)
    Labels: kind, reason
  - tastematch_profile_items: Titles per profile (histogram)

Score Cache Metrics:
  - tastematch_score_computations_total: Scores computed on cache miss (counter)
  - tastematch_score_cache_hits_total / _misses_total: Lookups (counter)
    Labels: store, reason (absent, stale, corrupt)
  - tastematch_score_cache_corruptions_total: Unreadable scopes (counter)
  - tastematch_score_cache_write_duration_seconds: Flush latency (histogram)

Catalog Metrics:
  - tastematch_catalog_lookups_total: Lookups by result (counter)
  - tastematch_catalog_lookup_duration_seconds: Latency incl. retries (histogram)
  - tastematch_catalog_retries_total: Retried attempts (counter)
  - tastematch_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)

Run Metrics:
  - tastematch_selected_items_total: Recommendations by tier (counter)
  - tastematch_run_users_total: (user, kind) runs by outcome (counter)
  - tastematch_run_duration_seconds: Batch duration (histogram)
  - tastematch_run_last_success_timestamp: Last clean batch (gauge)

# Metrics Endpoint

In interval mode the CLI serves the default registry:

	tastematch --interval 6h --metrics-addr :9090
	curl http://localhost:9090/metrics

Example PromQL:

	# Score cache hit rate
	sum(rate(tastematch_score_cache_hits_total[1h])) /
	  (sum(rate(tastematch_score_cache_hits_total[1h])) + sum(rate(tastematch_score_cache_misses_total[1h])))
*/
package metrics
