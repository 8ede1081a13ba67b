// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// WeightSumTolerance is how far factor weights may stray from summing to 1.
const WeightSumTolerance = 1e-6

// Selection strategies.
const (
	StrategyTiered = "tiered"
	StrategyTop    = "top"
)

// OpenEnded marks the last recency bracket, which covers every older age.
const OpenEnded = -1

// Config is the validated parameter set for profile building, scoring and
// selection. It is passed explicitly into every component; nothing reads
// package-level defaults after construction.
type Config struct {
	// Weights are the factor weights used by the scorer.
	Weights FactorWeights `koanf:"weights" json:"weights"`

	// Recency maps watch age to a multiplier.
	Recency RecencyConfig `koanf:"recency" json:"recency"`

	// Rating maps user ratings to multipliers, including negative signals.
	Rating RatingConfig `koanf:"rating" json:"rating"`

	// Profile holds accumulation limits and attribute normalization.
	Profile ProfileConfig `koanf:"profile" json:"profile"`

	// Scoring holds penalty and bonus parameters.
	Scoring ScoringConfig `koanf:"scoring" json:"scoring"`

	// Selection holds tiering, filters and target counts.
	Selection SelectionConfig `koanf:"selection" json:"selection"`

	// Run holds batch execution parameters.
	Run RunConfig `koanf:"run" json:"run"`

	// Seed makes tier sampling reproducible.
	// Default: 42.
	Seed int64 `koanf:"seed" json:"seed"`
}

// FactorWeights are the four non-negative factor weights. They must sum to 1.
type FactorWeights struct {
	// Default: 0.25.
	Genre float64 `koanf:"genre" json:"genre"`
	// Default: 0.50.
	Keyword float64 `koanf:"keyword" json:"keyword"`
	// Default: 0.20.
	Actor float64 `koanf:"actor" json:"actor"`
	// Default: 0.05.
	Director float64 `koanf:"director" json:"director"`
}

// Get returns the weight for f.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w FactorWeights) Get(f Factor) float64 {
	switch f {
	case FactorGenre:
		return w.Genre
	case FactorKeyword:
		return w.Keyword
	case FactorActor:
		return w.Actor
	case FactorDirector:
		return w.Director
	default:
		return 0
	}
}

// Sum returns the total weight.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w FactorWeights) Sum() float64 {
	var sum float64
	for _, f := range Factors {
		sum += w.Get(f)
	}
	return sum
}

// Validate returns an *InvalidWeightConfigError when any weight is negative or not
// finite, or the weights do not sum to 1 within WeightSumTolerance.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w FactorWeights) Validate() error {
	for _, f := range Factors {
		v := w.Get(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidWeightConfigError{Reason: fmt.Sprintf("%s weight must be a non-negative number, got %v", f, v)}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightSumTolerance {
		return &InvalidWeightConfigError{Reason: fmt.Sprintf("weights must sum to 1, got %.9f", sum)}
	}
	return nil
}

// RecencyBracket applies Multiplier to watches at most UpToDays old.
type RecencyBracket struct {
	// UpToDays is the inclusive upper bound in days, or OpenEnded.
	UpToDays int `koanf:"up_to_days" json:"up_to_days"`
	// Multiplier is applied to item weight.
	Multiplier float64 `koanf:"multiplier" json:"multiplier"`
}

// RecencyConfig maps watch age to a weight multiplier.
type RecencyConfig struct {
	// Enabled turns recency decay on. When false every watch weighs 1.0.
	// Default: true.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Brackets are contiguous, ascending, and end with an OpenEnded bracket.
	// Default: 0-30 1.0, 31-90 0.75, 91-180 0.50, 181-365 0.25, older 0.10.
	Brackets []RecencyBracket `koanf:"brackets" json:"brackets"`
}

// Multiplier returns the multiplier for a watch ageDays old. Negative ages
// (clock skew, future timestamps) count as zero.
func (c *RecencyConfig) Multiplier(ageDays int) float64 {
	if !c.Enabled {
		return 1
	}
	ageDays = max(ageDays, 0)
	for _, b := range c.Brackets {
		if b.UpToDays == OpenEnded || ageDays <= b.UpToDays {
			return b.Multiplier
		}
	}
	return 1
}

func (c *RecencyConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brackets) == 0 {
		return fmt.Errorf("recency.brackets must not be empty")
	}
	prev := -1
	for i, b := range c.Brackets {
		last := i == len(c.Brackets)-1
		if b.Multiplier < 0 || math.IsNaN(b.Multiplier) {
			return fmt.Errorf("recency.brackets[%d].multiplier must be non-negative, got %v", i, b.Multiplier)
		}
		if b.UpToDays == OpenEnded {
			if !last {
				return fmt.Errorf("recency.brackets[%d] is open-ended but not last", i)
			}
			continue
		}
		if b.UpToDays <= prev {
			return fmt.Errorf("recency.brackets[%d].up_to_days must be greater than %d, got %d", i, prev, b.UpToDays)
		}
		prev = b.UpToDays
	}
	if c.Brackets[len(c.Brackets)-1].UpToDays != OpenEnded {
		return fmt.Errorf("recency.brackets must end with an open-ended bracket (up_to_days: %d)", OpenEnded)
	}
	return nil
}

// RatingConfig maps a 0-10 user rating to a weight multiplier.
type RatingConfig struct {
	// Multipliers is indexed by rating 0..10.
	// Default: 0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4, 1.7, 2.0, 2.5.
	Multipliers []float64 `koanf:"multipliers" json:"multipliers"`

	// NegativeSignals enables negative multipliers for low ratings and dropped shows.
	// Default: true.
	NegativeSignals bool `koanf:"negative_signals" json:"negative_signals"`

	// NegativeThreshold is the highest rating treated as a dislike.
	// Default: 3.
	NegativeThreshold int `koanf:"negative_threshold" json:"negative_threshold"`

	// NegativeMultipliers is indexed by rating 0..NegativeThreshold.
	// Default: -1.0, -0.8, -0.5, -0.3.
	NegativeMultipliers []float64 `koanf:"negative_multipliers" json:"negative_multipliers"`

	// DroppedMultiplier applies to an unrated dropped show.
	// Default: -0.4.
	DroppedMultiplier float64 `koanf:"dropped_multiplier" json:"dropped_multiplier"`
}

// Multiplier returns the multiplier for rating (nil = unrated). dropped is
// only consulted for unrated events of kinds that honor it.
func (c *RatingConfig) Multiplier(rating *float64, dropped bool) float64 {
	if rating == nil {
		if dropped && c.NegativeSignals {
			return c.DroppedMultiplier
		}
		return 1
	}
	r := int(math.Floor(*rating + 0.5))
	r = min(max(r, 0), 10)
	return c.byRating(r)
}

func (c *RatingConfig) byRating(r int) float64 {
	if c.NegativeSignals && r <= c.NegativeThreshold && r < len(c.NegativeMultipliers) {
		return c.NegativeMultipliers[r]
	}
	if r < len(c.Multipliers) {
		return c.Multipliers[r]
	}
	return 1
}

func (c *RatingConfig) validate() error {
	if len(c.Multipliers) != 11 {
		return fmt.Errorf("rating.multipliers must have 11 entries (ratings 0-10), got %d", len(c.Multipliers))
	}
	if c.NegativeSignals {
		if c.NegativeThreshold < 0 || c.NegativeThreshold > 9 {
			return fmt.Errorf("rating.negative_threshold must be in [0, 9], got %d", c.NegativeThreshold)
		}
		if len(c.NegativeMultipliers) != c.NegativeThreshold+1 {
			return fmt.Errorf("rating.negative_multipliers must have %d entries, got %d", c.NegativeThreshold+1, len(c.NegativeMultipliers))
		}
		for i, m := range c.NegativeMultipliers {
			if m >= 0 {
				return fmt.Errorf("rating.negative_multipliers[%d] must be negative, got %v", i, m)
			}
		}
		if c.DroppedMultiplier > 0 {
			return fmt.Errorf("rating.dropped_multiplier must not be positive, got %v", c.DroppedMultiplier)
		}
	}
	for r := 1; r <= 10; r++ {
		if c.byRating(r) < c.byRating(r-1) {
			return fmt.Errorf("rating multipliers must be non-decreasing, rating %d (%v) < rating %d (%v)",
				r, c.byRating(r), r-1, c.byRating(r-1))
		}
	}
	return nil
}

// ProfileConfig holds accumulation limits and attribute normalization.
type ProfileConfig struct {
	// TopCast is the number of billed cast members that contribute.
	// Default: 3.
	TopCast int `koanf:"top_cast" json:"top_cast"`

	// PositiveCap bounds one event's contribution to one attribute.
	// Default: 5.0.
	PositiveCap float64 `koanf:"positive_cap" json:"positive_cap"`

	// NegativeCap bounds one disliked event's contribution to one attribute
	// at -NegativeCap. Several disliked events may still compound.
	// Default: 0.5.
	NegativeCap float64 `koanf:"negative_cap" json:"negative_cap"`

	// GenreAliases map raw genre names onto canonical ones.
	// Default: DefaultGenreAliases().
	GenreAliases map[string]string `koanf:"genre_aliases" json:"genre_aliases"`

	// MinHistory is the number of distinct watched titles required before a
	// user receives recommendations.
	// Default: 1.
	MinHistory int `koanf:"min_history" json:"min_history"`
}

// ScoringConfig holds penalty and bonus parameters.
type ScoringConfig struct {
	Rarity     RarityConfig     `koanf:"rarity" json:"rarity"`
	Popularity PopularityConfig `koanf:"popularity" json:"popularity"`
	Collection CollectionConfig `koanf:"collection" json:"collection"`

	// Ceiling clamps the composite score from above.
	// Default: 1.0.
	Ceiling float64 `koanf:"ceiling" json:"ceiling"`
}

// RarityConfig controls the TF-IDF style penalty on genres and keywords.
type RarityConfig struct {
	// Default: true.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Fraction of the profile's strongest weight below which a value counts as rare.
	// Default: 0.15.
	Fraction float64 `koanf:"fraction" json:"fraction"`

	// GenrePenalty is the penalty for a maximally rare genre.
	// Default: 0.10.
	GenrePenalty float64 `koanf:"genre_penalty" json:"genre_penalty"`

	// KeywordPenalty is the penalty for a maximally rare keyword.
	// Default: 0.05.
	KeywordPenalty float64 `koanf:"keyword_penalty" json:"keyword_penalty"`

	// UnseenGenrePenalty applies per candidate genre absent from the profile.
	// Default: 0.03.
	UnseenGenrePenalty float64 `koanf:"unseen_genre_penalty" json:"unseen_genre_penalty"`

	// UnseenKeywordPenalty applies per candidate keyword absent from the profile.
	// Default: 0.01.
	UnseenKeywordPenalty float64 `koanf:"unseen_keyword_penalty" json:"unseen_keyword_penalty"`

	// MaxPenalty caps the per-factor penalty before factor weighting.
	// Default: 0.5.
	MaxPenalty float64 `koanf:"max_penalty" json:"max_penalty"`
}

// PopularityConfig controls dampening of blockbuster titles.
type PopularityConfig struct {
	// Default: true.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Threshold is the vote count above which dampening starts.
	// Default: 50000.
	Threshold int64 `koanf:"threshold" json:"threshold"`

	// Factor is subtracted per order of magnitude above Threshold.
	// Default: 0.03.
	Factor float64 `koanf:"factor" json:"factor"`

	// MaxPenalty caps the subtraction.
	// Default: 0.10.
	MaxPenalty float64 `koanf:"max_penalty" json:"max_penalty"`
}

// CollectionConfig controls the franchise continuation bonus.
type CollectionConfig struct {
	// Default: true.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Scale multiplies log2(1+N) for N watched entries.
	// Default: 0.05.
	Scale float64 `koanf:"scale" json:"scale"`

	// MaxBonus caps the bonus.
	// Default: 0.15.
	MaxBonus float64 `koanf:"max_bonus" json:"max_bonus"`
}

// KindSelection holds per-media-kind selection settings.
type KindSelection struct {
	// TargetCount is the number of recommendations to produce.
	TargetCount int `koanf:"target_count" json:"target_count"`

	// MinRating excludes candidates rated below it.
	MinRating float64 `koanf:"min_rating" json:"min_rating"`

	// MinVoteCount excludes candidates with fewer votes.
	MinVoteCount int64 `koanf:"min_vote_count" json:"min_vote_count"`
}

// SelectionConfig controls filtering and tiered sampling.
type SelectionConfig struct {
	// Strategy is "tiered" or "top".
	// Default: tiered.
	Strategy string `koanf:"strategy" json:"strategy"`

	// SafePercent, DiversePercent and WildcardPercent split TargetCount.
	// Defaults: 0.6, 0.3, 0.1.
	SafePercent     float64 `koanf:"safe_percent" json:"safe_percent"`
	DiversePercent  float64 `koanf:"diverse_percent" json:"diverse_percent"`
	WildcardPercent float64 `koanf:"wildcard_percent" json:"wildcard_percent"`

	// SafeBand and DiverseBand are the percentile boundaries of the ranked
	// eligible list: [0, SafeBand) is the safe pool, [SafeBand, DiverseBand)
	// the diverse pool, the rest the wildcard pool.
	// Defaults: 0.2, 0.6.
	SafeBand    float64 `koanf:"safe_band" json:"safe_band"`
	DiverseBand float64 `koanf:"diverse_band" json:"diverse_band"`

	// MinScore excludes candidates scoring at or below it.
	// Default: 0.
	MinScore float64 `koanf:"min_score" json:"min_score"`

	// Movies and Shows hold per-kind targets and quality filters.
	// Defaults: movies 10 / 5.0 / 50, shows 10 / 0 / 0.
	Movies KindSelection `koanf:"movies" json:"movies"`
	Shows  KindSelection `koanf:"shows" json:"shows"`

	// ExcludedGenres are never recommended to anyone.
	ExcludedGenres []string `koanf:"excluded_genres" json:"excluded_genres"`

	// UserExcludedGenres adds per-user exclusions.
	UserExcludedGenres map[string][]string `koanf:"user_excluded_genres" json:"user_excluded_genres"`

	// Expression is an optional CEL predicate; candidates for which it
	// evaluates to false are excluded.
	Expression string `koanf:"expression" json:"expression"`
}

// ForKind returns the per-kind settings for k.
func (c *SelectionConfig) ForKind(k Kind) KindSelection {
	if k == KindShow {
		return c.Shows
	}
	return c.Movies
}

// ExcludedGenresFor merges global and per-user exclusions.
func (c *SelectionConfig) ExcludedGenresFor(user string) []string {
	out := slices.Clone(c.ExcludedGenres)
	for u, genres := range c.UserExcludedGenres {
		if strings.EqualFold(u, user) {
			out = append(out, genres...)
		}
	}
	return out
}

func (c *SelectionConfig) validate() error {
	switch c.Strategy {
	case StrategyTiered, StrategyTop:
	default:
		return fmt.Errorf("selection.strategy must be %q or %q, got %q", StrategyTiered, StrategyTop, c.Strategy)
	}
	for name, v := range map[string]float64{
		"safe_percent": c.SafePercent, "diverse_percent": c.DiversePercent, "wildcard_percent": c.WildcardPercent,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("selection.%s must be in [0, 1], got %v", name, v)
		}
	}
	if sum := c.SafePercent + c.DiversePercent + c.WildcardPercent; math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("selection tier percents must sum to 1, got %v", sum)
	}
	if c.SafeBand <= 0 || c.SafeBand >= c.DiverseBand || c.DiverseBand >= 1 {
		return fmt.Errorf("selection bands must satisfy 0 < safe_band < diverse_band < 1, got %v, %v", c.SafeBand, c.DiverseBand)
	}
	for name, ks := range map[string]KindSelection{"movies": c.Movies, "shows": c.Shows} {
		if ks.TargetCount < 1 {
			return fmt.Errorf("selection.%s.target_count must be positive, got %d", name, ks.TargetCount)
		}
		if ks.MinVoteCount < 0 {
			return fmt.Errorf("selection.%s.min_vote_count must be non-negative, got %d", name, ks.MinVoteCount)
		}
	}
	return nil
}

// RunConfig holds batch execution parameters.
type RunConfig struct {
	// Concurrency bounds parallel (user, kind) runs.
	// Default: 4.
	Concurrency int `koanf:"concurrency" json:"concurrency"`

	// EnrichCandidates fetches full attributes for every candidate from the
	// catalog before scoring.
	// Default: false.
	EnrichCandidates bool `koanf:"enrich_candidates" json:"enrich_candidates"`

	// MaxCandidates truncates the candidate list per kind (0 = unlimited).
	// Default: 0.
	MaxCandidates int `koanf:"max_candidates" json:"max_candidates"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: FactorWeights{Genre: 0.25, Keyword: 0.50, Actor: 0.20, Director: 0.05},
		Recency: RecencyConfig{
			Enabled: true,
			Brackets: []RecencyBracket{
				{UpToDays: 30, Multiplier: 1.0},
				{UpToDays: 90, Multiplier: 0.75},
				{UpToDays: 180, Multiplier: 0.50},
				{UpToDays: 365, Multiplier: 0.25},
				{UpToDays: OpenEnded, Multiplier: 0.10},
			},
		},
		Rating: RatingConfig{
			Multipliers:         []float64{0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4, 1.7, 2.0, 2.5},
			NegativeSignals:     true,
			NegativeThreshold:   3,
			NegativeMultipliers: []float64{-1.0, -0.8, -0.5, -0.3},
			DroppedMultiplier:   -0.4,
		},
		Profile: ProfileConfig{
			TopCast:      3,
			PositiveCap:  5.0,
			NegativeCap:  0.5,
			GenreAliases: DefaultGenreAliases(),
			MinHistory:   1,
		},
		Scoring: ScoringConfig{
			Rarity: RarityConfig{
				Enabled:              true,
				Fraction:             0.15,
				GenrePenalty:         0.10,
				KeywordPenalty:       0.05,
				UnseenGenrePenalty:   0.03,
				UnseenKeywordPenalty: 0.01,
				MaxPenalty:           0.5,
			},
			Popularity: PopularityConfig{Enabled: true, Threshold: 50000, Factor: 0.03, MaxPenalty: 0.10},
			Collection: CollectionConfig{Enabled: true, Scale: 0.05, MaxBonus: 0.15},
			Ceiling:    1.0,
		},
		Selection: SelectionConfig{
			Strategy:        StrategyTiered,
			SafePercent:     0.6,
			DiversePercent:  0.3,
			WildcardPercent: 0.1,
			SafeBand:        0.2,
			DiverseBand:     0.6,
			MinScore:        0,
			Movies:          KindSelection{TargetCount: 10, MinRating: 5.0, MinVoteCount: 50},
			Shows:           KindSelection{TargetCount: 10},
		},
		Run:  RunConfig{Concurrency: 4},
		Seed: 42,
	}
}

// Validate checks the configuration. Weight problems wrap ErrInvalidWeightConfig.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Recency.validate(); err != nil {
		return err
	}
	if err := c.Rating.validate(); err != nil {
		return err
	}

	if c.Profile.TopCast < 0 {
		return fmt.Errorf("profile.top_cast must be non-negative, got %d", c.Profile.TopCast)
	}
	if c.Profile.PositiveCap <= 0 {
		return fmt.Errorf("profile.positive_cap must be positive, got %v", c.Profile.PositiveCap)
	}
	if c.Profile.NegativeCap <= 0 {
		return fmt.Errorf("profile.negative_cap must be positive, got %v", c.Profile.NegativeCap)
	}
	if c.Profile.MinHistory < 0 {
		return fmt.Errorf("profile.min_history must be non-negative, got %d", c.Profile.MinHistory)
	}

	r := c.Scoring.Rarity
	if r.Fraction < 0 || r.Fraction > 1 {
		return fmt.Errorf("scoring.rarity.fraction must be in [0, 1], got %v", r.Fraction)
	}
	if r.GenrePenalty < 0 || r.KeywordPenalty < 0 || r.UnseenGenrePenalty < 0 || r.UnseenKeywordPenalty < 0 || r.MaxPenalty < 0 {
		return fmt.Errorf("scoring.rarity penalties must be non-negative")
	}
	p := c.Scoring.Popularity
	if p.Enabled && p.Threshold <= 0 {
		return fmt.Errorf("scoring.popularity.threshold must be positive, got %d", p.Threshold)
	}
	if p.Factor < 0 || p.MaxPenalty < 0 {
		return fmt.Errorf("scoring.popularity factor and max_penalty must be non-negative")
	}
	if c.Scoring.Collection.Scale < 0 || c.Scoring.Collection.MaxBonus < 0 {
		return fmt.Errorf("scoring.collection scale and max_bonus must be non-negative")
	}
	if c.Scoring.Ceiling <= 0 {
		return fmt.Errorf("scoring.ceiling must be positive, got %v", c.Scoring.Ceiling)
	}

	if err := c.Selection.validate(); err != nil {
		return err
	}
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("run.concurrency must be positive, got %d", c.Run.Concurrency)
	}
	if c.Run.MaxCandidates < 0 {
		return fmt.Errorf("run.max_candidates must be non-negative, got %d", c.Run.MaxCandidates)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Recency.Brackets = slices.Clone(c.Recency.Brackets)
	out.Rating.Multipliers = slices.Clone(c.Rating.Multipliers)
	out.Rating.NegativeMultipliers = slices.Clone(c.Rating.NegativeMultipliers)
	out.Profile.GenreAliases = maps.Clone(c.Profile.GenreAliases)
	out.Selection.ExcludedGenres = slices.Clone(c.Selection.ExcludedGenres)
	if c.Selection.UserExcludedGenres != nil {
		out.Selection.UserExcludedGenres = make(map[string][]string, len(c.Selection.UserExcludedGenres))
		for u, g := range c.Selection.UserExcludedGenres {
			out.Selection.UserExcludedGenres[u] = slices.Clone(g)
		}
	}
	return &out
}

// ScoringDigest identifies the parameters that influence a score. Cached
// scores computed under a different digest are stale.
func (c *Config) ScoringDigest() string {
	payload, err := json.Marshal(struct {
		Weights FactorWeights     `json:"w"`
		Scoring ScoringConfig     `json:"s"`
		Aliases map[string]string `json:"a"`
	}{c.Weights, c.Scoring, c.Profile.GenreAliases})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
