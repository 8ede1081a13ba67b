// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package api serves the read-only status endpoint of periodic mode using Chi:
// health checks, Prometheus metrics, and the latest run's recommendations.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tastematch/internal/middleware"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
)

// SummaryProvider exposes the most recent batch. Satisfied by *services.BatchService.
type SummaryProvider interface {
	Last() (*pipeline.RunSummary, int)
}

// RouterConfig tunes the status endpoint.
type RouterConfig struct {
	// RateLimitRequests per RateLimitWindow per client IP on /api/v1.
	// Default: 120 per minute.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// StaleAfter marks the service unready when the last batch finished
	// longer ago than this (0 = never stale).
	StaleAfter time.Duration
}

// DefaultRouterConfig returns the defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter builds the Chi router.
//
//	/healthz/live                       liveness
//	/healthz/ready                      503 until a batch has completed
//	/metrics                            Prometheus exposition
//	/api/v1/runs/latest                 last RunSummary
//	/api/v1/recommendations/{user}      last results for one user (?kind=movie|show)
func NewRouter(provider SummaryProvider, cfg RouterConfig) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = DefaultRouterConfig().RateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = DefaultRouterConfig().RateLimitWindow
	}

	h := &Handler{provider: provider, startTime: time.Now(), staleAfter: cfg.StaleAfter, now: time.Now}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/runs/latest", h.LatestRun)
		r.Get("/recommendations/{user}", h.UserRecommendations)
	})

	return r
}
