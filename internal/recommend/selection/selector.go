// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package selection turns scored candidates into the final recommendation
// list.
//
// Candidates are filtered, ranked by composite score and split into three
// percentile pools. The safe tier takes the best items of the top pool; the
// diverse and wildcard tiers sample their pools without replacement. A tier
// that runs dry passes its unfilled quota on to the next one, so the output
// reaches the target whenever enough candidates are eligible.
package selection

import (
	"cmp"
	"hash/fnv"
	"math"
	"math/rand"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/metrics"
	"github.com/tomtom215/tastematch/internal/recommend"
)

// Tier names.
const (
	TierSafe     = "safe"
	TierDiverse  = "diverse"
	TierWildcard = "wildcard"
	TierTop      = "top"
)

// quotaEpsilon absorbs float error in target*percent before flooring.
const quotaEpsilon = 1e-9

// Pick is one selected candidate.
type Pick struct {
	recommend.ScoredCandidate

	// Tier is the tier the pick was drawn from.
	Tier string `json:"tier"`

	// Rank is the 1-based position in the final list.
	Rank int `json:"rank"`
}

// Selection is the result of one Select call.
type Selection struct {
	// Items are ordered by composite score descending.
	Items []Pick `json:"items"`

	// Requested is the target count.
	Requested int `json:"requested"`

	// Eligible is the number of candidates that passed the filters.
	Eligible int `json:"eligible"`

	// Short is true when fewer than Requested items could be returned.
	Short bool `json:"short"`

	// Excluded counts filtered candidates by reason.
	Excluded map[string]int `json:"excluded,omitempty"`

	// TierCounts counts picks per tier.
	TierCounts map[string]int `json:"tier_counts,omitempty"`
}

// IDs returns the selected title IDs in order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.Items))
	for i := range s.Items {
		out[i] = s.Items[i].Candidate.TitleID
	}
	return out
}

// Selector applies a SelectionConfig.
type Selector struct {
	cfg    recommend.SelectionConfig
	norm   *recommend.Normalizer
	seed   int64
	logger zerolog.Logger
}

// New creates a selector from cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *recommend.Config, logger zerolog.Logger) *Selector {
	return &Selector{
		cfg:    cfg.Selection,
		norm:   recommend.NewNormalizer(cfg.Profile.GenreAliases),
		seed:   cfg.Seed,
		logger: logger.With().Str("component", "selection").Logger(),
	}
}

// Select filters, ranks and samples scored using the configured seed.
func (s *Selector) Select(scored []recommend.ScoredCandidate, filters *Filters, target int) Selection {
	return s.SelectSeeded(scored, filters, target, s.seed)
}

// SelectSeeded is Select with an explicit sampling seed. Equal inputs and
// seeds give equal output.
func (s *Selector) SelectSeeded(scored []recommend.ScoredCandidate, filters *Filters, target int, seed int64) Selection {
	sel := Selection{
		Requested:  target,
		Excluded:   make(map[string]int),
		TierCounts: make(map[string]int),
	}
	if target <= 0 {
		return sel
	}
	if filters.EmptyProfile {
		sel.Short = true
		s.logger.Debug().Str("user", filters.User).Str("kind", string(filters.Kind)).
			Msg("empty taste profile, nothing to recommend")
		return sel
	}

	eligible := s.eligible(scored, filters, sel.Excluded)
	sel.Eligible = len(eligible)

	var picks []Pick
	switch {
	case s.cfg.Strategy == recommend.StrategyTop:
		picks = takeTop(eligible, target)
	case len(eligible) <= target:
		picks = s.labelAll(eligible)
	default:
		picks = s.tiered(eligible, target, seed)
	}

	slices.SortStableFunc(picks, func(a, b Pick) int { return byScore(&a.ScoredCandidate, &b.ScoredCandidate) })
	for i := range picks {
		picks[i].Rank = i + 1
		sel.TierCounts[picks[i].Tier]++
		metrics.SelectedItems.WithLabelValues(string(filters.Kind), picks[i].Tier).Inc()
	}
	sel.Items = picks
	sel.Short = len(picks) < target
	if sel.Short {
		metrics.SelectionShortfalls.WithLabelValues(string(filters.Kind)).Inc()
	}

	s.logger.Debug().
		Str("user", filters.User).
		Str("kind", string(filters.Kind)).
		Int("scored", len(scored)).
		Int("eligible", sel.Eligible).
		Int("selected", len(picks)).
		Bool("short", sel.Short).
		Msg("selection complete")
	return sel
}

// eligible applies filters, drops duplicate IDs and ranks the survivors.
func (s *Selector) eligible(scored []recommend.ScoredCandidate, filters *Filters, excluded map[string]int) []recommend.ScoredCandidate {
	cf := compile(filters, s.norm)
	seen := make(map[string]struct{}, len(scored))
	out := make([]recommend.ScoredCandidate, 0, len(scored))
	for i := range scored {
		sc := &scored[i]
		if _, dup := seen[sc.Candidate.TitleID]; dup {
			excluded[ReasonDuplicate]++
			continue
		}
		seen[sc.Candidate.TitleID] = struct{}{}
		if reason := cf.reject(sc, s.norm); reason != "" {
			excluded[reason]++
			continue
		}
		out = append(out, *sc)
	}
	slices.SortFunc(out, func(a, b recommend.ScoredCandidate) int { return byScore(&a, &b) })
	return out
}

// pools returns the [start, end) bounds of the safe, diverse and wildcard
// pools over a ranked list of n items.
func (s *Selector) pools(n int) [3][2]int {
	if n == 0 {
		return [3][2]int{}
	}
	safeEnd := clampInt(int(math.Ceil(float64(n)*s.cfg.SafeBand)), 1, n)
	diverseEnd := clampInt(int(math.Ceil(float64(n)*s.cfg.DiverseBand)), safeEnd, n)
	return [3][2]int{{0, safeEnd}, {safeEnd, diverseEnd}, {diverseEnd, n}}
}

// quotas splits target across tiers. Flooring leaves a remainder that goes to
// the safe tier.
func (s *Selector) quotas(target int) [3]int {
	q := [3]int{
		int(math.Floor(float64(target)*s.cfg.SafePercent + quotaEpsilon)),
		int(math.Floor(float64(target)*s.cfg.DiversePercent + quotaEpsilon)),
		int(math.Floor(float64(target)*s.cfg.WildcardPercent + quotaEpsilon)),
	}
	q[0] += target - (q[0] + q[1] + q[2])
	return q
}

var tierNames = [3]string{TierSafe, TierDiverse, TierWildcard}

// tiered draws target items from ranked, which must hold more than target
// items.
func (s *Selector) tiered(ranked []recommend.ScoredCandidate, target int, seed int64) []Pick {
	bounds := s.pools(len(ranked))
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // sampling, not security

	// Each pool is consumed front to back. The safe pool keeps rank order;
	// the others are shuffled once, which samples without replacement.
	var pools [3][]int
	for t, b := range bounds {
		idx := make([]int, 0, b[1]-b[0])
		for i := b[0]; i < b[1]; i++ {
			idx = append(idx, i)
		}
		if t > 0 {
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
		pools[t] = idx
	}

	quota := s.quotas(target)
	picks := make([]Pick, 0, target)
	for remaining := target; remaining > 0; {
		progressed := false
		for t := range pools {
			take := min(quota[t], len(pools[t]))
			for _, i := range pools[t][:take] {
				picks = append(picks, Pick{ScoredCandidate: ranked[i], Tier: tierNames[t]})
			}
			pools[t] = pools[t][take:]
			remaining -= take
			progressed = progressed || take > 0

			// Unfilled quota moves on; the wildcard tier hands back to safe.
			quota[(t+1)%3] += quota[t] - take
			quota[t] = 0
		}
		if !progressed && poolsEmpty(pools) {
			break
		}
	}
	return picks
}

// labelAll returns every ranked item, labeled by the pool it falls in.
func (s *Selector) labelAll(ranked []recommend.ScoredCandidate) []Pick {
	picks := make([]Pick, 0, len(ranked))
	for t, b := range s.pools(len(ranked)) {
		for i := b[0]; i < b[1]; i++ {
			picks = append(picks, Pick{ScoredCandidate: ranked[i], Tier: tierNames[t]})
		}
	}
	return picks
}

func takeTop(ranked []recommend.ScoredCandidate, target int) []Pick {
	n := min(target, len(ranked))
	picks := make([]Pick, n)
	for i := 0; i < n; i++ {
		picks[i] = Pick{ScoredCandidate: ranked[i], Tier: TierTop}
	}
	return picks
}

func poolsEmpty(pools [3][]int) bool {
	return len(pools[0]) == 0 && len(pools[1]) == 0 && len(pools[2]) == 0
}

// byScore orders by composite descending, then title ID ascending.
func byScore(a, b *recommend.ScoredCandidate) int {
	if c := cmp.Compare(b.Result.Composite, a.Result.Composite); c != 0 {
		return c
	}
	return cmp.Compare(a.Candidate.TitleID, b.Candidate.TitleID)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// SeedFor derives a per-user, per-kind sampling seed from base so that runs
// are reproducible while different users see different samples.
func SeedFor(base int64, user string, kind recommend.Kind) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(user + "\x00" + string(kind))) //nolint:errcheck // hash writes never fail
	return base ^ int64(h.Sum64()&math.MaxInt64)         //nolint:gosec // masked to 63 bits
}
