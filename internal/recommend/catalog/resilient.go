// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tastematch/internal/cache"
	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
)

// ResilienceConfig tunes the Resilient wrapper.
type ResilienceConfig struct {
	// Timeout bounds each individual call.
	// Default: 10s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" validate:"gt=0"`

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3.
	MaxRetries int `koanf:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`

	// InitialBackoff and MaxBackoff bound the exponential retry delay.
	// Defaults: 200ms, 5s.
	InitialBackoff time.Duration `koanf:"initial_backoff" json:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `koanf:"max_backoff" json:"max_backoff" validate:"gtefield=InitialBackoff"`

	// RateLimit is the sustained calls per second; Burst the bucket size.
	// Defaults: 10, 20.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" validate:"gt=0"`
	Burst     int     `koanf:"burst" json:"burst" validate:"gte=1"`

	// CacheSize and CacheTTL size the lookup memo.
	// Defaults: 5000, 30m.
	CacheSize int           `koanf:"cache_size" json:"cache_size" validate:"gte=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl" json:"cache_ttl" validate:"gte=0"`

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig `koanf:"breaker" json:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding a source.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	// Default: 3.
	MaxRequests uint32 `koanf:"max_requests" json:"max_requests" validate:"gte=1"`

	// Interval is the closed-state window after which counts reset.
	// Default: 1m.
	Interval time.Duration `koanf:"interval" json:"interval" validate:"gte=0"`

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 2m.
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout" validate:"gt=0"`

	// MinRequests and FailureRatio decide when to trip: at least
	// MinRequests calls in the window with a failure ratio at or above
	// FailureRatio.
	// Defaults: 10, 0.6.
	MinRequests  uint32  `koanf:"min_requests" json:"min_requests" validate:"gte=1"`
	FailureRatio float64 `koanf:"failure_ratio" json:"failure_ratio" validate:"gt=0,lte=1"`
}

// DefaultResilienceConfig returns production defaults.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RateLimit:      10,
		Burst:          20,
		CacheSize:      5000,
		CacheTTL:       30 * time.Minute,
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     time.Minute,
			OpenTimeout:  2 * time.Minute,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
	}
}

// Resilient guards a Source. Every call waits on a token-bucket limiter,
// runs through a circuit breaker with a per-attempt timeout and is retried
// with exponential backoff. Successful lookups are memoized.
//
// Not-found answers are neither retried nor counted as breaker failures.
// An open breaker fails fast without retrying.
type Resilient struct {
	src     Source
	cfg     ResilienceConfig
	name    string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[any]
	memo    *cache.LRU[recommend.Candidate]
	logger  zerolog.Logger
}

// NewResilient wraps src.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewResilient(src Source, cfg ResilienceConfig, logger zerolog.Logger) *Resilient {
	name := "catalog-" + src.Name()
	r := &Resilient{
		src:     src,
		cfg:     cfg,
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1)),
		logger:  logger.With().Str("component", "catalog").Str("source", src.Name()).Logger(),
	}
	if cfg.CacheSize > 0 {
		r.memo = cache.NewLRU[recommend.Candidate](cfg.CacheSize, cfg.CacheTTL)
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	r.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.Breaker.FailureRatio
			if shouldTrip {
				r.logger.Warn().Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).Msg("opening circuit breaker")
			}
			return shouldTrip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.CircuitStateValue(to.String()))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return r
}

// Name implements Source.
func (r *Resilient) Name() string { return r.src.Name() }

// State returns the breaker state name: closed, half-open or open.
func (r *Resilient) State() string { return r.cb.State().String() }

// MemoStats returns lookup memo counters. Zero when memoization is off.
func (r *Resilient) MemoStats() cache.Stats {
	if r.memo == nil {
		return cache.Stats{}
	}
	return r.memo.Stats()
}

// Candidates implements Source.
func (r *Resilient) Candidates(ctx context.Context, kind recommend.Kind) ([]recommend.Candidate, error) {
	res, err := r.call(ctx, "candidates", func(ctx context.Context) (any, error) {
		return r.src.Candidates(ctx, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s candidates: %w", kind, err)
	}
	return castResult[[]recommend.Candidate](res)
}

// Lookup implements Source.
func (r *Resilient) Lookup(ctx context.Context, kind recommend.Kind, titleID string) (recommend.Candidate, error) {
	load := func() (recommend.Candidate, error) {
		res, err := r.call(ctx, "lookup", func(ctx context.Context) (any, error) {
			return r.src.Lookup(ctx, kind, titleID)
		})
		if err != nil {
			return recommend.Candidate{}, err
		}
		return castResult[recommend.Candidate](res)
	}
	if r.memo == nil {
		return load()
	}
	c, _, err := r.memo.GetOrLoad(indexKey(kind, titleID), load)
	return c, err
}

// call runs fn with rate limiting, breaker protection, a per-attempt timeout
// and retries.
func (r *Resilient) call(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	start := time.Now()
	var result any

	attempt := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		res, err := r.cb.Execute(func() (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
			return fn(callCtx)
		})
		r.recordBreaker(err)
		switch {
		case err == nil:
			result = res
			return nil
		case errors.Is(err, ErrNotFound),
			errors.Is(err, gobreaker.ErrOpenState),
			errors.Is(err, gobreaker.ErrTooManyRequests),
			ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	err := backoff.RetryNotify(attempt, r.newBackOff(ctx), func(err error, wait time.Duration) {
		metrics.CatalogRetries.WithLabelValues(r.src.Name()).Inc()
		r.logger.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying catalog call")
	})
	metrics.RecordCatalogLookup(r.src.Name(), time.Since(start), err)
	return result, err
}

func (r *Resilient) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.MaxInterval = r.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.cfg.MaxRetries, 0))), ctx) //nolint:gosec // non-negative
}

func (r *Resilient) recordBreaker(err error) {
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
		r.logger.Warn().Err(err).Msg("catalog call rejected by circuit breaker")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
	}
}

// castResult type-checks a breaker result.
func castResult[T any](result any) (T, error) {
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}
