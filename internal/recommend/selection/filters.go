// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package selection

import (
	"github.com/tomtom215/tastematch/internal/recommend"
)

// Exclusion reasons reported in Selection.Excluded.
const (
	ReasonExcludedID    = "excluded_id"
	ReasonMinRating     = "min_rating"
	ReasonMinVotes      = "min_votes"
	ReasonExcludedGenre = "excluded_genre"
	ReasonMinScore      = "min_score"
	ReasonExpression    = "expression"
	ReasonExprError     = "expression_error"
	ReasonDuplicate     = "duplicate"
)

// Filters decide candidate eligibility. Zero values disable a filter.
type Filters struct {
	// User and Kind identify the selection; User is visible to Expr.
	User string
	Kind recommend.Kind

	// MinRating excludes candidates with a lower catalog rating.
	MinRating float64

	// MinVoteCount excludes candidates with fewer catalog votes.
	MinVoteCount int64

	// ExcludedGenres excludes candidates carrying any of these genres.
	// Values are compared after normalization.
	ExcludedGenres []string

	// ExcludedIDs excludes titles already watched or otherwise ruled out.
	ExcludedIDs map[string]struct{}

	// MinScore excludes candidates whose composite is at or below it.
	MinScore float64

	// Expr is an optional compiled predicate.
	Expr *ExprFilter

	// EmptyProfile short-circuits selection to an empty result.
	EmptyProfile bool
}

// FiltersFor builds the filters configured for the owner of p. Titles in the
// profile are excluded; extra IDs (for example earlier recommendations that
// have since been watched) are merged in.
func FiltersFor(cfg *recommend.SelectionConfig, p *recommend.TasteProfile, expr *ExprFilter, extraIDs ...string) Filters {
	ks := cfg.ForKind(p.Kind)
	excluded := make(map[string]struct{}, len(p.Watched)+len(extraIDs))
	for id := range p.Watched {
		excluded[id] = struct{}{}
	}
	for _, id := range extraIDs {
		excluded[id] = struct{}{}
	}
	return Filters{
		User:           p.User,
		Kind:           p.Kind,
		MinRating:      ks.MinRating,
		MinVoteCount:   ks.MinVoteCount,
		ExcludedGenres: cfg.ExcludedGenresFor(p.User),
		ExcludedIDs:    excluded,
		MinScore:       cfg.MinScore,
		Expr:           expr,
		EmptyProfile:   p.IsEmpty(),
	}
}

// compiledFilters holds per-call precomputed state.
type compiledFilters struct {
	Filters
	genres map[string]struct{}
}

func compile(f *Filters, norm *recommend.Normalizer) *compiledFilters {
	cf := &compiledFilters{Filters: *f, genres: make(map[string]struct{}, len(f.ExcludedGenres))}
	for _, g := range norm.Values(recommend.FactorGenre, f.ExcludedGenres) {
		cf.genres[g] = struct{}{}
	}
	return cf
}

// reject returns the first reason sc is ineligible, or "" when it passes.
// Checks run cheapest first; the expression is evaluated last.
func (cf *compiledFilters) reject(sc *recommend.ScoredCandidate, norm *recommend.Normalizer) string {
	c := &sc.Candidate
	if _, ok := cf.ExcludedIDs[c.TitleID]; ok {
		return ReasonExcludedID
	}
	if c.Rating < cf.MinRating {
		return ReasonMinRating
	}
	if c.VoteCount < cf.MinVoteCount {
		return ReasonMinVotes
	}
	if len(cf.genres) > 0 {
		for _, g := range c.Genres {
			if _, ok := cf.genres[norm.Value(recommend.FactorGenre, g)]; ok {
				return ReasonExcludedGenre
			}
		}
	}
	if sc.Result.Composite <= cf.MinScore {
		return ReasonMinScore
	}
	if cf.Expr != nil {
		ok, err := cf.Expr.Match(cf.User, sc)
		if err != nil {
			return ReasonExprError
		}
		if !ok {
			return ReasonExpression
		}
	}
	return ""
}
