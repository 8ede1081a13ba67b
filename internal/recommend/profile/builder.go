// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package profile builds weighted taste profiles from watch history.
package profile

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
)

// Report summarizes what happened while building one profile.
type Report struct {
	// Events is the number of input events.
	Events int `json:"events"`

	// Titles is the number of distinct titles that contributed.
	Titles int `json:"titles"`

	// Skipped counts malformed or foreign events that were dropped.
	Skipped int `json:"skipped"`

	// Negative counts titles whose item weight was negative.
	Negative int `json:"negative"`

	// MissingAttributes lists non-fatal attribute problems.
	MissingAttributes []error `json:"-"`
}

// Builder turns watch events into a TasteProfile for one media kind.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	cfg    *recommend.Config
	kind   recommend.MediaKind
	norm   *recommend.Normalizer
	logger zerolog.Logger
}

// NewBuilder creates a builder. cfg must already be validated.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(cfg *recommend.Config, kind recommend.MediaKind, logger zerolog.Logger) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("profile: nil config")
	}
	if kind == nil {
		return nil, fmt.Errorf("profile: nil media kind")
	}
	return &Builder{
		cfg:    cfg,
		kind:   kind,
		norm:   recommend.NewNormalizer(cfg.Profile.GenreAliases),
		logger: logger.With().Str("component", "profile").Str("kind", string(kind.Kind())).Logger(),
	}, nil
}

// Build aggregates events into a fresh profile for user. asOf is the
// reference time for recency. An empty event list yields an empty profile
// with a deterministic fingerprint.
func (b *Builder) Build(user string, events []recommend.WatchEvent, asOf time.Time) (*recommend.TasteProfile, Report) {
	kind := b.kind.Kind()
	report := Report{Events: len(events)}
	p := recommend.NewTasteProfile(user, kind)
	p.AsOf = asOf

	merged := make(map[string]recommend.WatchEvent, len(events))
	for i := range events {
		ev := events[i]
		if ev.TitleID == "" {
			report.Skipped++
			report.MissingAttributes = append(report.MissingAttributes,
				&recommend.MissingAttributeError{Attribute: "title_id"})
			metrics.ProfileEventsSkipped.WithLabelValues(string(kind), "missing_title_id").Inc()
			b.logger.Warn().Str("user", user).Int("index", i).Msg("skipping watch event without title_id")
			continue
		}
		if ev.Kind != "" && ev.Kind != kind {
			report.Skipped++
			metrics.ProfileEventsSkipped.WithLabelValues(string(kind), "kind_mismatch").Inc()
			b.logger.Warn().Str("user", user).Str("title_id", ev.TitleID).Str("event_kind", string(ev.Kind)).
				Msg("skipping watch event of another media kind")
			continue
		}
		if prev, ok := merged[ev.TitleID]; ok {
			ev = b.kind.Merge(prev, ev)
		}
		merged[ev.TitleID] = ev
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	contributions := make([]contribution, 0, len(ids))
	for _, id := range ids {
		ev := merged[id]
		c := b.contribute(p, &ev, &report)
		contributions = append(contributions, c)
	}

	p.TotalItems = len(ids)
	p.Fingerprint = fingerprint(kind, contributions)
	report.Titles = len(ids)

	metrics.ProfileBuilds.WithLabelValues(string(kind)).Inc()
	metrics.ProfileItems.WithLabelValues(string(kind)).Observe(float64(p.TotalItems))
	b.logger.Debug().
		Str("user", user).
		Int("events", report.Events).
		Int("titles", report.Titles).
		Int("skipped", report.Skipped).
		Int("negative", report.Negative).
		Str("fingerprint", p.Fingerprint).
		Msg("profile built")

	return p, report
}

// ItemWeight returns recency × rating × rewatch for one merged event.
func (b *Builder) ItemWeight(ev *recommend.WatchEvent, asOf time.Time) float64 {
	ageDays := int(math.Floor(asOf.Sub(ev.WatchedAt).Hours() / 24))
	recency := b.cfg.Recency.Multiplier(ageDays)
	rating := b.cfg.Rating.Multiplier(ev.UserRating, ev.Dropped && b.kind.HonorsDropped())
	rewatch := 1 + math.Log1p(float64(max(ev.RewatchCount, 0)))
	return recency * rating * rewatch
}

// contribute accumulates one title into p and returns its fingerprint record.
func (b *Builder) contribute(p *recommend.TasteProfile, ev *recommend.WatchEvent, report *Report) contribution {
	if ev.WatchedAt.IsZero() {
		report.MissingAttributes = append(report.MissingAttributes,
			&recommend.MissingAttributeError{TitleID: ev.TitleID, Attribute: "watched_at"})
	}
	if ev.Attributes.IsEmpty() {
		report.MissingAttributes = append(report.MissingAttributes,
			&recommend.MissingAttributeError{TitleID: ev.TitleID, Attribute: "attributes"})
	}

	weight := b.ItemWeight(ev, p.AsOf)
	step := clamp(weight, -b.cfg.Profile.NegativeCap, b.cfg.Profile.PositiveCap)
	if weight < 0 {
		report.Negative++
	}

	c := contribution{titleID: ev.TitleID, weight: step, collection: ev.CollectionID}
	for _, f := range recommend.Factors {
		values := b.norm.Values(f, ev.Values(f))
		if f == recommend.FactorActor && len(values) > b.cfg.Profile.TopCast {
			values = values[:b.cfg.Profile.TopCast]
		}
		c.values[factorIndex(f)] = values
		if step == 0 {
			continue
		}
		weights := p.Weights(f)
		for _, v := range values {
			weights[v] += step
		}
	}

	if ev.CollectionID != "" && step > 0 {
		p.Collections[ev.CollectionID]++
	}
	p.Watched[ev.TitleID] = struct{}{}
	return c
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func factorIndex(f recommend.Factor) int {
	return slices.Index(recommend.Factors, f)
}
