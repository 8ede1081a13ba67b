// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the recommendation batch:
// - Profile building
// - Scoring and score cache efficiency
// - Catalog lookups and the circuit breaker guarding them
// - Selection tiers and per-run outcomes

var (
	// Profile Metrics
	ProfileBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_profile_builds_total",
			Help: "Total number of taste profiles built",
		},
		[]string{"kind"},
	)

	ProfileEventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_profile_events_skipped_total",
			Help: "Total number of malformed watch events skipped during profile building",
		},
		[]string{"kind", "reason"}, // reason: "missing_title_id", "kind_mismatch"
	)

	ProfileItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastematch_profile_items",
			Help:    "Number of distinct titles contributing to a profile",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"kind"},
	)

	// Scoring Metrics
	ScoreComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_score_computations_total",
			Help: "Total number of candidate scores computed (cache misses)",
		},
		[]string{"kind"},
	)

	ScoreCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_score_cache_hits_total",
			Help: "Total number of score cache hits",
		},
		[]string{"store"},
	)

	ScoreCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_score_cache_misses_total",
			Help: "Total number of score cache misses",
		},
		[]string{"store", "reason"}, // reason: "absent", "stale", "corrupt"
	)

	ScoreCacheCorruptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_score_cache_corruptions_total",
			Help: "Total number of unreadable score cache scopes or entries",
		},
		[]string{"store"},
	)

	ScoreCacheWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastematch_score_cache_write_duration_seconds",
			Help:    "Duration of score cache flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store"},
	)

	// Catalog Metrics
	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_catalog_lookups_total",
			Help: "Total number of catalog attribute lookups",
		},
		[]string{"source", "result"}, // result: "success", "failure", "memo"
	)

	CatalogLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastematch_catalog_lookup_duration_seconds",
			Help:    "Duration of catalog attribute lookups including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_catalog_retries_total",
			Help: "Total number of retried catalog lookups",
		},
		[]string{"source"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tastematch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Selection Metrics
	SelectedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_selected_items_total",
			Help: "Total number of recommended items by tier",
		},
		[]string{"kind", "tier"}, // tier: "safe", "diverse", "wildcard", "top"
	)

	SelectionShortfalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_selection_shortfalls_total",
			Help: "Total number of selections with fewer eligible candidates than requested",
		},
		[]string{"kind"},
	)

	// Run Metrics
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tastematch_run_duration_seconds",
			Help:    "Duration of a full recommendation batch in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	RunUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_run_users_total",
			Help: "Total number of (user, kind) runs by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "skipped", "failed"
	)

	RunLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tastematch_run_last_success_timestamp",
			Help: "Unix timestamp of the last batch that finished without failed users",
		},
	)

	// Status Endpoint Metrics
	StatusRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastematch_status_requests_total",
			Help: "Total number of status endpoint requests",
		},
		[]string{"method", "route", "status"},
	)

	StatusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastematch_status_request_duration_seconds",
			Help:    "Status endpoint request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"route"},
	)

	StatusActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tastematch_status_active_requests",
			Help: "Number of status endpoint requests in flight",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tastematch_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordCacheLookup records the outcome of one score cache lookup.
// reason is ignored on hits.
func RecordCacheLookup(store string, hit bool, reason string) {
	if hit {
		ScoreCacheHits.WithLabelValues(store).Inc()
		return
	}
	ScoreCacheMisses.WithLabelValues(store, reason).Inc()
}

// RecordCatalogLookup records a catalog lookup and its latency.
func RecordCatalogLookup(source string, duration time.Duration, err error) {
	CatalogLookupDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		CatalogLookups.WithLabelValues(source, "failure").Inc()
		return
	}
	CatalogLookups.WithLabelValues(source, "success").Inc()
}

// RecordRun records a finished batch. failed is the number of failed users.
func RecordRun(duration time.Duration, failed int) {
	RunDuration.Observe(duration.Seconds())
	if failed == 0 {
		RunLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordStatusRequest records one status endpoint request. route is the
// router pattern, not the raw path, so user names never become labels.
func RecordStatusRequest(method, route, status string, duration time.Duration) {
	StatusRequests.WithLabelValues(method, route, status).Inc()
	StatusRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		StatusActiveRequests.Inc()
		return
	}
	StatusActiveRequests.Dec()
}

// CircuitStateValue maps a circuit breaker state name to the gauge value.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
