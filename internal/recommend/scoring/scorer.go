// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package scoring scores candidate titles against a taste profile.
//
// A composite score is assembled in stages, each kept in the breakdown:
//
//  1. raw match per factor (signed sum of profile weights)
//  2. diminishing returns (Saturate) on the raw match normalized by the
//     profile's strongest weight for that factor
//  3. weight redistribution away from factors without any match; genres
//     and keywords the profile has never seen count as a mismatch and keep
//     their weight
//  4. rarity penalty for genres and keywords
//  5. popularity dampening for very high vote counts
//  6. collection bonus for partially watched franchises
//
// The composite is clamped from above at the configured ceiling. Negative
// composites are kept; they mean "actively disliked".
package scoring

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
)

// algorithmVersion changes whenever a formula in this package changes.
const algorithmVersion = "sqrt-saturate-v2"

// attributeNames maps factors to the candidate field they read.
var attributeNames = map[recommend.Factor]string{
	recommend.FactorGenre:    "genres",
	recommend.FactorKeyword:  "keywords",
	recommend.FactorActor:    "top_cast",
	recommend.FactorDirector: "director",
}

// Scorer scores candidates. It is immutable and safe for concurrent use.
type Scorer struct {
	cfg    *recommend.Config
	norm   *recommend.Normalizer
	digest string
	logger zerolog.Logger
}

// New validates the factor weights once and returns a scorer. Invalid
// weights yield an error wrapping recommend.ErrInvalidWeightConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *recommend.Config, logger zerolog.Logger) (*Scorer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("scoring: nil config")
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	return &Scorer{
		cfg:    cfg,
		norm:   recommend.NewNormalizer(cfg.Profile.GenreAliases),
		digest: algorithmVersion + "-" + cfg.ScoringDigest(),
		logger: logger.With().Str("component", "scoring").Logger(),
	}, nil
}

// Digest identifies the formulas and parameters this scorer applies. Two
// scorers with equal digests produce identical results for identical input.
func (s *Scorer) Digest() string {
	return s.digest
}

// Score scores one candidate against p. For many candidates against the same
// profile, use ForProfile to avoid recomputing profile statistics.
func (s *Scorer) Score(c *recommend.Candidate, p *recommend.TasteProfile) recommend.ScoreResult {
	return s.ForProfile(p).Score(c)
}

// ProfileScorer scores candidates against one fixed profile.
type ProfileScorer struct {
	s       *Scorer
	profile *recommend.TasteProfile
	maxAbs  map[recommend.Factor]float64
	maxPos  map[recommend.Factor]float64
}

// ForProfile precomputes per-factor statistics of p.
func (s *Scorer) ForProfile(p *recommend.TasteProfile) *ProfileScorer {
	if p == nil {
		p = recommend.NewTasteProfile("", "")
	}
	ps := &ProfileScorer{
		s:       s,
		profile: p,
		maxAbs:  make(map[recommend.Factor]float64, len(recommend.Factors)),
		maxPos:  make(map[recommend.Factor]float64, len(recommend.Factors)),
	}
	for _, f := range recommend.Factors {
		for _, w := range p.Weights(f) {
			ps.maxPos[f] = math.Max(ps.maxPos[f], w)
			ps.maxAbs[f] = math.Max(ps.maxAbs[f], math.Abs(w))
		}
	}
	return ps
}

// Score computes the composite score and breakdown for c.
func (ps *ProfileScorer) Score(c *recommend.Candidate) recommend.ScoreResult {
	cfg := ps.s.cfg
	p := ps.profile
	bd := recommend.Breakdown{Factors: make([]recommend.FactorScore, 0, len(recommend.Factors))}

	raw := make(map[recommend.Factor]float64, len(recommend.Factors))
	values := make(map[recommend.Factor][]string, len(recommend.Factors))
	retained := make(map[recommend.Factor]bool, 2)
	for _, f := range recommend.Factors {
		vs := ps.s.norm.Values(f, c.Values(f))
		if f == recommend.FactorActor && len(vs) > cfg.Profile.TopCast {
			vs = vs[:cfg.Profile.TopCast]
		}
		if len(vs) == 0 {
			bd.Missing = append(bd.Missing, attributeNames[f])
		}
		values[f] = vs
		weights := p.Weights(f)
		for _, v := range vs {
			raw[f] += weights[v]
		}
		if len(vs) > 0 && len(weights) > 0 && (f == recommend.FactorGenre || f == recommend.FactorKeyword) {
			retained[f] = true
		}
	}

	effective := Redistribute(cfg.Weights, raw, retained)
	for _, f := range recommend.Factors {
		fs := recommend.FactorScore{
			Factor:           f,
			Raw:              raw[f],
			ConfiguredWeight: cfg.Weights.Get(f),
			EffectiveWeight:  effective[f],
		}
		weights := p.Weights(f)
		for _, v := range values[f] {
			if _, ok := weights[v]; ok {
				fs.Matched = append(fs.Matched, v)
			}
		}
		if raw[f] != 0 {
			fs.Transformed = Saturate(raw[f] / ps.scale(f))
			fs.Contribution = fs.EffectiveWeight * fs.Transformed
		}
		if penalty := ps.rarity(f, values[f]); penalty > 0 {
			fs.RarityPenalty = penalty
			bd.RarityPenalty += penalty * fs.ConfiguredWeight
		}
		bd.WeightedSum += fs.Contribution
		bd.Factors = append(bd.Factors, fs)
	}

	if !c.Attributes.IsEmpty() {
		bd.PopularityDampening = PopularityDampening(&cfg.Scoring.Popularity, c.VoteCount)
	}
	if c.CollectionID != "" {
		bd.CollectionWatched = p.Collections[c.CollectionID]
		bd.CollectionBonus = CollectionBonus(&cfg.Scoring.Collection, bd.CollectionWatched)
	}

	bd.Unclamped = bd.WeightedSum - bd.RarityPenalty - bd.PopularityDampening + bd.CollectionBonus
	composite := math.Min(bd.Unclamped, cfg.Scoring.Ceiling)

	metrics.ScoreComputations.WithLabelValues(string(p.Kind)).Inc()
	return recommend.ScoreResult{
		CandidateID:        c.TitleID,
		Composite:          composite,
		Breakdown:          bd,
		ProfileFingerprint: p.Fingerprint,
	}
}

// scale normalizes raw matches. Profiles holding only dislikes for a factor
// are scaled by their strongest dislike.
func (ps *ProfileScorer) scale(f recommend.Factor) float64 {
	if m := ps.maxPos[f]; m > 0 {
		return m
	}
	if m := ps.maxAbs[f]; m > 0 {
		return m
	}
	return 1
}

// rarity returns the unweighted rarity penalty for genre and keyword values.
func (ps *ProfileScorer) rarity(f recommend.Factor, values []string) float64 {
	rc := &ps.s.cfg.Scoring.Rarity
	if !rc.Enabled || len(values) == 0 {
		return 0
	}

	var rare, unseen float64
	switch f {
	case recommend.FactorGenre:
		rare, unseen = rc.GenrePenalty, rc.UnseenGenrePenalty
	case recommend.FactorKeyword:
		rare, unseen = rc.KeywordPenalty, rc.UnseenKeywordPenalty
	default:
		return 0
	}

	weights := ps.profile.Weights(f)
	if len(weights) == 0 {
		return 0
	}
	threshold := rc.Fraction * ps.maxPos[f]

	var penalty float64
	for _, v := range values {
		w, ok := weights[v]
		switch {
		case !ok:
			penalty += unseen
		case w > 0 && w < threshold:
			penalty += (1 - w/threshold) * rare
		}
	}
	return math.Min(penalty, rc.MaxPenalty)
}
