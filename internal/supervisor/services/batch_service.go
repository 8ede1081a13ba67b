// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package services provides Suture service wrappers for Tastematch components.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
)

// DefaultBatchInterval is used when BatchServiceConfig.Interval is not positive.
const DefaultBatchInterval = 24 * time.Hour

// BatchRunner runs one recommendation batch. Satisfied by *pipeline.Engine.
type BatchRunner interface {
	RunBatch(ctx context.Context, users []string, kinds []recommend.Kind) (*pipeline.RunSummary, error)
}

// UserLister enumerates users with watch history. Satisfied by *catalog.FileSource.
type UserLister interface {
	Users(ctx context.Context) ([]string, error)
}

// BatchServiceConfig holds configuration for the batch service.
type BatchServiceConfig struct {
	// Interval between batches.
	// Default: 24h
	Interval time.Duration

	// RunOnStart triggers a batch when the service starts.
	RunOnStart bool

	// RunTimeout bounds one batch (0 = unbounded).
	RunTimeout time.Duration

	// Users fixes the user list. When empty, the UserLister supplies it on every run
	// so users added to the library are picked up.
	Users []string

	// Kinds are the media kinds to recommend.
	Kinds []recommend.Kind
}

// BatchService runs recommendation batches on a schedule under Suture supervision.
type BatchService struct {
	runner BatchRunner
	lister UserLister
	config BatchServiceConfig
	logger zerolog.Logger
	name   string

	// OnComplete, when set, receives every finished summary, including
	// partial summaries of canceled runs.
	OnComplete func(*pipeline.RunSummary)

	mu   sync.Mutex
	last *pipeline.RunSummary
	runs int
}

// NewBatchService creates a new batch service. lister may be nil when cfg.Users is set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBatchService(runner BatchRunner, lister UserLister, cfg BatchServiceConfig, logger zerolog.Logger) *BatchService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBatchInterval
	}
	return &BatchService{
		runner: runner,
		lister: lister,
		config: cfg,
		logger: logger.With().Str("service", "batch").Logger(),
		name:   "batch-service",
	}
}

// Serve implements the suture.Service interface.
// A failed batch is logged and retried on the next tick; only cancellation
// ends the loop.
func (s *BatchService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_start", s.config.RunOnStart).
		Dur("interval", s.config.Interval).
		Msg("batch service starting")

	if s.config.RunOnStart {
		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("initial batch failed (will retry on schedule)")
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("batch service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("scheduled batch triggered")
			if _, err := s.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn().Err(err).Msg("scheduled batch failed")
			}
		}
	}
}

// RunOnce runs a single batch with the configured timeout.
func (s *BatchService) RunOnce(ctx context.Context) (*pipeline.RunSummary, error) {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		s.logger.Warn().Msg("no users to recommend for")
	}

	start := time.Now()
	summary, err := s.runner.RunBatch(ctx, users, s.config.Kinds)
	if summary != nil {
		s.record(summary)
		s.logger.Debug().
			Str("run_id", summary.RunID).
			Bool("canceled", summary.Canceled).
			Dur("elapsed", time.Since(start)).
			Msg("batch recorded")
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && s.config.RunTimeout > 0 {
			return summary, fmt.Errorf("batch exceeded %v: %w", s.config.RunTimeout, err)
		}
		return summary, err
	}
	return summary, nil
}

func (s *BatchService) users(ctx context.Context) ([]string, error) {
	if len(s.config.Users) > 0 || s.lister == nil {
		return s.config.Users, nil
	}
	users, err := s.lister.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *BatchService) record(summary *pipeline.RunSummary) {
	s.mu.Lock()
	s.last = summary
	s.runs++
	s.mu.Unlock()

	if s.OnComplete != nil {
		s.OnComplete(summary)
	}
}

// Last returns the most recent summary and the number of batches run.
func (s *BatchService) Last() (*pipeline.RunSummary, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.runs
}

// String returns the service name for logging.
func (s *BatchService) String() string {
	return s.name
}
