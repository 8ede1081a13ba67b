// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// flakySource fails the first failN calls of each operation.
type flakySource struct {
	failN   int64
	calls   atomic.Int64
	delay   time.Duration
	missing bool
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) attempt(ctx context.Context) error {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= f.failN {
		return fmt.Errorf("transient failure %d", n)
	}
	return nil
}

func (f *flakySource) Candidates(ctx context.Context, kind recommend.Kind) ([]recommend.Candidate, error) {
	if err := f.attempt(ctx); err != nil {
		return nil, err
	}
	return []recommend.Candidate{{TitleID: "tt1", Kind: kind}}, nil
}

func (f *flakySource) Lookup(ctx context.Context, kind recommend.Kind, id string) (recommend.Candidate, error) {
	if err := f.attempt(ctx); err != nil {
		return recommend.Candidate{}, err
	}
	if f.missing {
		return recommend.Candidate{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return recommend.Candidate{TitleID: id, Kind: kind, Attributes: recommend.Attributes{Director: "Kurosawa"}}, nil
}

func fastConfig() ResilienceConfig {
	cfg := DefaultResilienceConfig()
	cfg.Timeout = 200 * time.Millisecond
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.RateLimit = 1000
	cfg.Burst = 100
	return cfg
}

func TestResilient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	src := &flakySource{failN: 2}
	r := NewResilient(src, fastConfig(), zerolog.Nop())

	c, err := r.Lookup(context.Background(), recommend.KindMovie, "tt1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if c.Director != "Kurosawa" {
		t.Errorf("Lookup() = %+v", c)
	}
	if got := src.calls.Load(); got != 3 {
		t.Errorf("source called %d times, want 3", got)
	}
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()
	src := &flakySource{failN: 100}
	cfg := fastConfig()
	cfg.MaxRetries = 2
	r := NewResilient(src, cfg, zerolog.Nop())

	if _, err := r.Candidates(context.Background(), recommend.KindMovie); err == nil {
		t.Fatal("Candidates() succeeded against a failing source")
	}
	if got := src.calls.Load(); got != 3 {
		t.Errorf("source called %d times, want 3 (1 + 2 retries)", got)
	}
}

func TestResilient_NotFoundIsPermanent(t *testing.T) {
	t.Parallel()
	src := &flakySource{missing: true}
	r := NewResilient(src, fastConfig(), zerolog.Nop())

	_, err := r.Lookup(context.Background(), recommend.KindMovie, "tt404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("not-found retried: %d calls", got)
	}
	if r.State() != "closed" {
		t.Errorf("breaker state = %s after not-found", r.State())
	}
}

func TestResilient_BreakerOpensAndFailsFast(t *testing.T) {
	t.Parallel()
	src := &flakySource{failN: 1000}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.CacheSize = 0
	cfg.Breaker.MinRequests = 3
	cfg.Breaker.FailureRatio = 0.5
	cfg.Breaker.OpenTimeout = time.Hour
	r := NewResilient(src, cfg, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = r.Lookup(ctx, recommend.KindMovie, fmt.Sprintf("tt%d", i))
	}
	if r.State() != "open" {
		t.Fatalf("breaker state = %s, want open", r.State())
	}

	before := src.calls.Load()
	if _, err := r.Lookup(ctx, recommend.KindMovie, "tt9"); err == nil {
		t.Fatal("Lookup() succeeded with open breaker")
	}
	if src.calls.Load() != before {
		t.Error("open breaker let a call through")
	}
}

func TestResilient_MemoizesLookups(t *testing.T) {
	t.Parallel()
	src := &flakySource{}
	r := NewResilient(src, fastConfig(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := r.Lookup(ctx, recommend.KindMovie, "tt1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Lookup(ctx, recommend.KindShow, "tt1"); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source called %d times, want 2 (one per kind)", got)
	}
	if s := r.MemoStats(); s.Hits != 4 {
		t.Errorf("memo stats = %+v", s)
	}
}

func TestResilient_PerCallTimeout(t *testing.T) {
	t.Parallel()
	src := &flakySource{delay: time.Second}
	cfg := fastConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 1
	r := NewResilient(src, cfg, zerolog.Nop())

	start := time.Now()
	_, err := r.Lookup(context.Background(), recommend.KindMovie, "tt1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lookup() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not enforced: took %v", elapsed)
	}
}

func TestResilient_CanceledContext(t *testing.T) {
	t.Parallel()
	src := &flakySource{failN: 100}
	r := NewResilient(src, fastConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Candidates(ctx, recommend.KindMovie); err == nil {
		t.Fatal("Candidates() succeeded with canceled context")
	}
	if got := src.calls.Load(); got > 1 {
		t.Errorf("canceled call retried %d times", got)
	}
}

func TestEnrich(t *testing.T) {
	t.Parallel()
	c := recommend.Candidate{TitleID: "tt1", Rating: 6.5, Attributes: recommend.Attributes{Genres: []string{"Drama"}}}
	full := recommend.Candidate{
		TitleID: "tt1", Title: "Ikiru", Year: 1952, Rating: 8.3, VoteCount: 80000,
		Attributes: recommend.Attributes{
			Genres: []string{"Drama", "Romance"}, Keywords: []string{"bureaucracy"},
			TopCast: []string{"Takashi Shimura"}, Director: "Akira Kurosawa",
		},
	}
	Enrich(&c, &full)

	if len(c.Genres) != 1 {
		t.Errorf("existing genres replaced: %v", c.Genres)
	}
	if c.Rating != 6.5 {
		t.Errorf("existing rating replaced: %v", c.Rating)
	}
	if c.Director != "Akira Kurosawa" || c.Title != "Ikiru" || c.VoteCount != 80000 || len(c.Keywords) != 1 {
		t.Errorf("missing fields not filled: %+v", c)
	}
}
