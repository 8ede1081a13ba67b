// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package pipeline runs the recommendation pipeline for a batch of users.
//
// For every (user, media kind) pair it builds a fresh taste profile, scores
// the catalog's candidates through the score cache and selects the final
// list. Pairs run in parallel up to the configured concurrency; they share
// nothing mutable except the score cache store, which serializes its own
// writes. A failing pair never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/tastematch/internal/logging"
	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/catalog"
	"github.com/tomtom215/tastematch/internal/recommend/profile"
	"github.com/tomtom215/tastematch/internal/recommend/scorecache"
	"github.com/tomtom215/tastematch/internal/recommend/scoring"
	"github.com/tomtom215/tastematch/internal/recommend/selection"
)

// flushTimeout bounds the final cache flush, which runs even after
// cancellation.
const flushTimeout = 30 * time.Second

// HistorySource supplies watch history.
type HistorySource interface {
	WatchEvents(ctx context.Context, user string, kind recommend.Kind) ([]recommend.WatchEvent, error)
}

// Engine wires the pipeline stages together. It is safe for concurrent use,
// but batches sharing one cache should not overlap.
type Engine struct {
	cfg      *recommend.Config
	builders map[recommend.Kind]*profile.Builder
	scorer   *scoring.Scorer
	cache    *scorecache.Cache
	selector *selection.Selector
	expr     *selection.ExprFilter
	catalog  catalog.Source
	history  HistorySource
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine validates cfg and builds an engine. Invalid weights fail here,
// before any scoring.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(
	cfg *recommend.Config,
	src catalog.Source,
	history HistorySource,
	store scorecache.Store,
	logger zerolog.Logger,
) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	if src == nil || history == nil || store == nil {
		return nil, fmt.Errorf("pipeline: catalog, history and cache store are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommendation config: %w", err)
	}
	cfg = cfg.Clone()

	scorer, err := scoring.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	expr, err := selection.NewExprFilter(cfg.Selection.Expression)
	if err != nil {
		return nil, err
	}

	builders := make(map[recommend.Kind]*profile.Builder, 2)
	for _, k := range []recommend.Kind{recommend.KindMovie, recommend.KindShow} {
		mk, err := recommend.MediaKindFor(k)
		if err != nil {
			return nil, err
		}
		b, err := profile.NewBuilder(cfg, mk, logger)
		if err != nil {
			return nil, err
		}
		builders[k] = b
	}

	return &Engine{
		cfg:      cfg,
		builders: builders,
		scorer:   scorer,
		cache:    scorecache.New(store, scorer.Digest(), logger),
		selector: selection.New(cfg, logger),
		expr:     expr,
		catalog:  src,
		history:  history,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}, nil
}

// Cache returns the score cache.
func (e *Engine) Cache() *scorecache.Cache {
	return e.cache
}

// Close flushes and closes the score cache.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// RunBatch runs every (user, kind) pair. It returns an error only when ctx
// was canceled; per-pair failures are reported in the summary. The score
// cache is flushed before returning in every case.
func (e *Engine) RunBatch(ctx context.Context, users []string, kinds []recommend.Kind) (*RunSummary, error) {
	runID := logging.GenerateRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := e.logger.With().Str("run_id", runID).Logger()

	start := e.now()
	asOf := start.UTC()
	summary := &RunSummary{RunID: runID, StartedAt: asOf}

	logger.Info().Int("users", len(users)).Interface("kinds", kinds).Msg("recommendation run starting")

	type task struct {
		user     string
		kind     recommend.Kind
		cands    []recommend.Candidate
		degraded []bool
		err      error
	}
	var tasks []task
	for _, kind := range kinds {
		cands, degraded, err := e.candidates(ctx, kind)
		summary.LookupFailures += countTrue(degraded)
		if err != nil {
			logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to load candidates")
		}
		for _, u := range users {
			tasks = append(tasks, task{user: u, kind: kind, cands: cands, degraded: degraded, err: err})
		}
	}

	results := make([]UserResult, len(tasks))
	g := new(errgroup.Group)
	g.SetLimit(max(e.cfg.Run.Concurrency, 1))
	for i := range tasks {
		t := tasks[i]
		g.Go(func() error {
			if t.err != nil {
				results[i] = failed(t.user, t.kind, fmt.Errorf("load candidates: %w", t.err))
				return nil
			}
			results[i] = e.runUser(ctx, t.user, t.kind, t.cands, t.degraded, asOf)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors

	for i := range results {
		r := &results[i]
		summary.add(r)
		metrics.RunUsers.WithLabelValues(string(r.Kind), r.Status).Inc()
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := e.cache.Flush(flushCtx); err != nil {
		summary.CacheFlushError = err.Error()
		logger.Error().Err(err).Msg("failed to flush score cache")
	}

	summary.Duration = e.now().Sub(start)
	summary.Canceled = ctx.Err() != nil
	metrics.RecordRun(summary.Duration, summary.Failed)

	logger.Info().
		Int("pairs", summary.Users).
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("cache_hits", summary.CacheHits).
		Int("cache_misses", summary.CacheMisses).
		Dur("duration", summary.Duration).
		Msg("recommendation run complete")

	if summary.Canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// RunUser runs a single (user, kind) pair outside a batch.
func (e *Engine) RunUser(ctx context.Context, user string, kind recommend.Kind) (UserResult, error) {
	cands, degraded, err := e.candidates(ctx, kind)
	if err != nil {
		return failed(user, kind, err), err
	}
	r := e.runUser(ctx, user, kind, cands, degraded, e.now().UTC())
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := e.cache.Flush(flushCtx); err != nil {
		e.logger.Warn().Err(err).Msg("failed to flush score cache")
	}
	return r, r.Err
}

// candidates lists candidates of kind, optionally truncating and enriching
// them. Enrichment failures degrade the candidate to its listing attributes
// and are flagged in the parallel degraded slice, not returned.
func (e *Engine) candidates(ctx context.Context, kind recommend.Kind) ([]recommend.Candidate, []bool, error) {
	cands, err := e.catalog.Candidates(ctx, kind)
	if err != nil {
		return nil, nil, err
	}
	for i := range cands {
		if cands[i].Kind == "" {
			cands[i].Kind = kind
		}
	}
	slices.SortStableFunc(cands, func(a, b recommend.Candidate) int { return strings.Compare(a.TitleID, b.TitleID) })
	if n := e.cfg.Run.MaxCandidates; n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	degraded := make([]bool, len(cands))
	if !e.cfg.Run.EnrichCandidates {
		return cands, degraded, nil
	}

	var logOnce sync.Once
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Run.Concurrency, 1))
	for i := range cands {
		c := &cands[i]
		g.Go(func() error {
			full, err := e.catalog.Lookup(gctx, kind, c.TitleID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				degraded[i] = true
				logOnce.Do(func() {
					e.logger.Warn().Err(err).Str("title_id", c.TitleID).
						Msg("catalog lookup failed, using listing attributes")
				})
				return nil
			}
			catalog.Enrich(c, &full)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, degraded, err
	}
	return cands, degraded, nil
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// runUser runs the pipeline for one (user, kind) pair.
func (e *Engine) runUser(ctx context.Context, user string, kind recommend.Kind, cands []recommend.Candidate, degraded []bool, asOf time.Time) (result UserResult) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("user", user).Str("kind", string(kind)).Logger()

	result = UserResult{User: user, Kind: kind}
	defer func() { result.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		result = failed(user, kind, err)
		return result
	}

	builder, ok := e.builders[kind]
	if !ok {
		result = failed(user, kind, fmt.Errorf("unsupported media kind %q", kind))
		return result
	}

	events, err := e.history.WatchEvents(ctx, user, kind)
	if err != nil {
		result = failed(user, kind, fmt.Errorf("load watch history: %w", err))
		log.Error().Err(result.Err).Msg("user failed")
		return result
	}

	p, report := builder.Build(user, events, asOf)
	result.Fingerprint = p.Fingerprint
	result.ProfileItems = p.TotalItems
	result.MissingAttributes = len(report.MissingAttributes)

	if p.TotalItems < e.cfg.Profile.MinHistory {
		result.Status = StatusSkipped
		result.Err = &recommend.InsufficientHistoryError{User: user, Kind: kind, Have: p.TotalItems, Need: e.cfg.Profile.MinHistory}
		result.Error = result.Err.Error()
		log.Info().Int("have", p.TotalItems).Int("need", e.cfg.Profile.MinHistory).Msg("skipping user with insufficient history")
		return result
	}

	scope := scorecache.Scope(user, kind)
	ps := e.scorer.ForProfile(p)
	scored := make([]recommend.ScoredCandidate, 0, len(cands))
	for i := range cands {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.Err = err
			result.Error = err.Error()
			log.Warn().Int("scored", len(scored)).Msg("run canceled mid-user")
			return result
		}
		c := &cands[i]
		if p.HasWatched(c.TitleID) {
			continue
		}
		lookup := e.cache.GetOrCompute
		if degraded[i] {
			// Listing-only attributes are valid for this run only.
			lookup = e.cache.GetOrComputeTransient
		}
		res, out := lookup(ctx, scope, c, p, ps.Score)
		switch {
		case out.Hit:
			result.CacheHits++
		default:
			result.CacheMisses++
		}
		if out.Corrupt {
			result.CacheCorruptions++
		}
		if out.WriteErr != nil {
			result.CacheWriteErrors++
		}
		if len(res.Breakdown.Missing) > 0 {
			result.MissingAttributes++
		}
		scored = append(scored, recommend.ScoredCandidate{Candidate: *c, Result: res, Cached: out.Hit})
	}
	result.Scored = len(scored)

	filters := selection.FiltersFor(&e.cfg.Selection, p, e.expr)
	target := e.cfg.Selection.ForKind(kind).TargetCount
	sel := e.selector.SelectSeeded(scored, &filters, target, selection.SeedFor(e.cfg.Seed, user, kind))
	result.Selection = &sel
	result.Status = StatusOK

	log.Info().
		Int("profile_items", p.TotalItems).
		Int("scored", result.Scored).
		Int("selected", len(sel.Items)).
		Int("cache_hits", result.CacheHits).
		Bool("short", sel.Short).
		Msg("recommendations ready")
	return result
}

func failed(user string, kind recommend.Kind, err error) UserResult {
	status := StatusFailed
	if errors.Is(err, recommend.ErrInsufficientHistory) {
		status = StatusSkipped
	}
	return UserResult{User: user, Kind: kind, Status: status, Err: err, Error: err.Error()}
}
