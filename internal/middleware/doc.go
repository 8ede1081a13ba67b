// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package middleware provides HTTP middleware for the status endpoint.

Key Components:

  - Request ID: UUID-based request tracking, propagated as the logging
    correlation ID
  - Prometheus Metrics: request counts and latency labeled by route pattern
  - Access Log: one zerolog line per request

All middleware has the func(http.Handler) http.Handler shape and plugs into
a Chi router:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

PrometheusMetrics reads the Chi route pattern after the handler has run, so
/api/v1/recommendations/alice is recorded as
/api/v1/recommendations/{user}. Requests that match no route are recorded
as "unmatched".
*/
package middleware
