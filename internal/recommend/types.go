// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a media library type.
type Kind string

const (
	// KindMovie is a feature film library.
	KindMovie Kind = "movie"
	// KindShow is a television library. Events describe a whole show, not an episode.
	KindShow Kind = "show"
)

// ParseKind parses "movie"/"movies" or "show"/"shows"/"tv".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, nil
	case "show", "shows", "tv":
		return KindShow, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Factor names one of the four similarity dimensions.
type Factor string

const (
	FactorGenre    Factor = "genre"
	FactorKeyword  Factor = "keyword"
	FactorActor    Factor = "actor"
	FactorDirector Factor = "director"
)

// Factors lists every factor in a fixed order. Iteration over factors always
// uses this order so floating-point sums are reproducible.
var Factors = []Factor{FactorGenre, FactorKeyword, FactorActor, FactorDirector}

// Attributes are the descriptive fields shared by watch events and candidates.
type Attributes struct {
	// Genres of the title.
	Genres []string `json:"genres,omitempty" yaml:"genres,omitempty"`

	// Keywords are catalog keywords/tags.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// TopCast is the billed cast in order.
	TopCast []string `json:"top_cast,omitempty" yaml:"top_cast,omitempty"`

	// Director is the primary director, if known.
	Director string `json:"director,omitempty" yaml:"director,omitempty"`

	// CollectionID groups sequels and franchise entries.
	CollectionID string `json:"collection_id,omitempty" yaml:"collection_id,omitempty"`
}

// Values returns the attribute values contributing to factor f.
func (a *Attributes) Values(f Factor) []string {
	switch f {
	case FactorGenre:
		return a.Genres
	case FactorKeyword:
		return a.Keywords
	case FactorActor:
		return a.TopCast
	case FactorDirector:
		if a.Director == "" {
			return nil
		}
		return []string{a.Director}
	default:
		return nil
	}
}

// IsEmpty reports whether no factor has any value.
func (a *Attributes) IsEmpty() bool {
	return len(a.Genres) == 0 && len(a.Keywords) == 0 && len(a.TopCast) == 0 && a.Director == ""
}

// WatchEvent is one user's interaction with one title.
type WatchEvent struct {
	Attributes `yaml:",inline"`

	// TitleID identifies the title in the library.
	TitleID string `json:"title_id" yaml:"title_id"`

	// Kind is the media kind of the title.
	Kind Kind `json:"media_kind" yaml:"media_kind"`

	// WatchedAt is when the title was (last) watched.
	WatchedAt time.Time `json:"watched_at" yaml:"watched_at"`

	// UserRating is the user's rating on a 0-10 scale, nil when unrated.
	UserRating *float64 `json:"user_rating,omitempty" yaml:"user_rating,omitempty"`

	// RewatchCount is the number of additional viewings.
	RewatchCount int `json:"rewatch_count,omitempty" yaml:"rewatch_count,omitempty"`

	// Dropped marks a show that was started and abandoned.
	Dropped bool `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// Candidate is an unwatched title eligible for recommendation.
type Candidate struct {
	Attributes `yaml:",inline"`

	// TitleID identifies the title in the library.
	TitleID string `json:"title_id" yaml:"title_id"`

	// Kind is the media kind of the title.
	Kind Kind `json:"media_kind" yaml:"media_kind"`

	// Title is the display title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Year is the release year.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Rating is the catalog audience rating (0-10).
	Rating float64 `json:"rating,omitempty" yaml:"rating,omitempty"`

	// VoteCount is the number of catalog votes behind Rating.
	VoteCount int64 `json:"vote_count,omitempty" yaml:"vote_count,omitempty"`

	// Popularity is the catalog popularity index.
	Popularity float64 `json:"popularity,omitempty" yaml:"popularity,omitempty"`
}

// TasteProfile is one user's aggregated preferences for one media kind.
// A profile is built fresh on every run and never mutated afterwards.
type TasteProfile struct {
	// User is the profile owner.
	User string `json:"user"`

	// Kind is the media kind the profile was built from.
	Kind Kind `json:"media_kind"`

	// GenreWeights maps normalized genre to accumulated signed weight.
	GenreWeights map[string]float64 `json:"genre_weights"`

	// KeywordWeights maps normalized keyword to accumulated signed weight.
	KeywordWeights map[string]float64 `json:"keyword_weights"`

	// ActorWeights maps normalized cast member to accumulated signed weight.
	ActorWeights map[string]float64 `json:"actor_weights"`

	// DirectorWeights maps normalized director to accumulated signed weight.
	DirectorWeights map[string]float64 `json:"director_weights"`

	// Collections counts positively weighted watched entries per collection.
	Collections map[string]int `json:"collections"`

	// Watched holds every contributing title ID.
	Watched map[string]struct{} `json:"-"`

	// Fingerprint identifies the exact weighted contents of the profile.
	Fingerprint string `json:"fingerprint"`

	// TotalItems is the number of titles that contributed.
	TotalItems int `json:"total_items"`

	// AsOf is the reference time recency was measured against.
	AsOf time.Time `json:"as_of"`
}

// NewTasteProfile returns an empty profile with allocated maps.
func NewTasteProfile(user string, kind Kind) *TasteProfile {
	return &TasteProfile{
		User:            user,
		Kind:            kind,
		GenreWeights:    make(map[string]float64),
		KeywordWeights:  make(map[string]float64),
		ActorWeights:    make(map[string]float64),
		DirectorWeights: make(map[string]float64),
		Collections:     make(map[string]int),
		Watched:         make(map[string]struct{}),
	}
}

// Weights returns the weight map for factor f.
func (p *TasteProfile) Weights(f Factor) map[string]float64 {
	switch f {
	case FactorGenre:
		return p.GenreWeights
	case FactorKeyword:
		return p.KeywordWeights
	case FactorActor:
		return p.ActorWeights
	case FactorDirector:
		return p.DirectorWeights
	default:
		return nil
	}
}

// IsEmpty reports whether no title contributed to the profile.
func (p *TasteProfile) IsEmpty() bool {
	return p == nil || p.TotalItems == 0
}

// HasWatched reports whether titleID contributed to the profile.
func (p *TasteProfile) HasWatched(titleID string) bool {
	_, ok := p.Watched[titleID]
	return ok
}

// FactorScore is the per-factor part of a score breakdown.
type FactorScore struct {
	// Factor is the dimension this entry describes.
	Factor Factor `json:"factor"`

	// Raw is the signed sum of profile weights over the candidate's values.
	Raw float64 `json:"raw"`

	// Transformed is Raw after normalization and diminishing returns.
	Transformed float64 `json:"transformed"`

	// ConfiguredWeight is the factor weight from configuration.
	ConfiguredWeight float64 `json:"configured_weight"`

	// EffectiveWeight is the weight after redistribution (zero when Raw is zero).
	EffectiveWeight float64 `json:"effective_weight"`

	// Contribution is EffectiveWeight * Transformed.
	Contribution float64 `json:"contribution"`

	// RarityPenalty is the penalty charged to this factor before scaling.
	RarityPenalty float64 `json:"rarity_penalty,omitempty"`

	// Matched lists candidate values found in the profile.
	Matched []string `json:"matched,omitempty"`
}

// Breakdown explains how a composite score was assembled.
type Breakdown struct {
	// Factors holds one entry per factor in Factors order.
	Factors []FactorScore `json:"factors"`

	// WeightedSum is the sum of factor contributions.
	WeightedSum float64 `json:"weighted_sum"`

	// RarityPenalty is the total weighted rarity penalty subtracted.
	RarityPenalty float64 `json:"rarity_penalty"`

	// PopularityDampening is the amount subtracted for very popular titles.
	PopularityDampening float64 `json:"popularity_dampening"`

	// CollectionBonus is the amount added for partially watched franchises.
	CollectionBonus float64 `json:"collection_bonus"`

	// CollectionWatched is the number of watched entries of the candidate's collection.
	CollectionWatched int `json:"collection_watched,omitempty"`

	// Unclamped is the composite before the upper clamp.
	Unclamped float64 `json:"unclamped"`

	// Missing lists attributes the candidate lacked.
	Missing []string `json:"missing,omitempty"`
}

// Factor returns the entry for f, or a zero entry when absent.
func (b *Breakdown) Factor(f Factor) FactorScore {
	for _, fs := range b.Factors {
		if fs.Factor == f {
			return fs
		}
	}
	return FactorScore{Factor: f}
}

// ScoreResult is the scorer output for one (candidate, profile) pair.
type ScoreResult struct {
	// CandidateID is the scored title.
	CandidateID string `json:"candidate_id"`

	// Composite is the final score. Negative values mean "actively disliked".
	Composite float64 `json:"composite_score"`

	// Breakdown holds every stage's contribution.
	Breakdown Breakdown `json:"breakdown"`

	// ProfileFingerprint is the fingerprint of the profile used.
	ProfileFingerprint string `json:"profile_fingerprint"`
}

// ScoredCandidate pairs a candidate with its score.
type ScoredCandidate struct {
	Candidate Candidate   `json:"candidate"`
	Result    ScoreResult `json:"result"`

	// Cached is true when the result came from the score cache.
	Cached bool `json:"cached"`
}
