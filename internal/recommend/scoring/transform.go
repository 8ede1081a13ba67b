// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scoring

import (
	"math"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// Saturate is the diminishing-returns transform applied to a normalized raw
// match x (raw divided by the profile's strongest weight for the factor):
//
//	T(x) = sign(x) * (1 - 1/(1 + sqrt(|x|)))
//
// T is odd, continuous, monotonically non-decreasing, T(0) = 0, T(1) = 0.5,
// and |T(x)| < 1 for every finite x.
func Saturate(x float64) float64 {
	if x == 0 || math.IsNaN(x) {
		return 0
	}
	t := 1 - 1/(1+math.Sqrt(math.Abs(x)))
	if x < 0 {
		return -t
	}
	return t
}

// Redistribute returns effective factor weights. A factor with a zero raw
// match drops out unless retained reports it, and the configured weights
// of the factors left are rescaled to sum to 1. Retained factors stay in
// the denominator with a zero contribution. If no factor matched, every
// effective weight is zero.
func Redistribute(weights recommend.FactorWeights, raw map[recommend.Factor]float64, retained map[recommend.Factor]bool) map[recommend.Factor]float64 {
	var total float64
	matched := false
	for _, f := range recommend.Factors {
		if raw[f] != 0 {
			matched = true
		}
		if raw[f] != 0 || retained[f] {
			total += weights.Get(f)
		}
	}
	out := make(map[recommend.Factor]float64, len(recommend.Factors))
	for _, f := range recommend.Factors {
		if !matched || total == 0 || (raw[f] == 0 && !retained[f]) {
			out[f] = 0
			continue
		}
		out[f] = weights.Get(f) / total
	}
	return out
}

// PopularityDampening returns the amount subtracted for a candidate with
// votes catalog votes.
func PopularityDampening(cfg *recommend.PopularityConfig, votes int64) float64 {
	if !cfg.Enabled || cfg.Threshold <= 0 || votes <= cfg.Threshold {
		return 0
	}
	d := cfg.Factor * math.Log10(float64(votes)/float64(cfg.Threshold))
	return math.Min(d, cfg.MaxPenalty)
}

// CollectionBonus returns the franchise bonus for watched entries of the
// candidate's collection.
func CollectionBonus(cfg *recommend.CollectionConfig, watched int) float64 {
	if !cfg.Enabled || watched <= 0 {
		return 0
	}
	return math.Min(cfg.Scale*math.Log2(1+float64(watched)), cfg.MaxBonus)
}
