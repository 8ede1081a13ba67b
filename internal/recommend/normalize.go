// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import "strings"

// DefaultGenreAliases folds the genre spellings used by common catalogs onto
// one canonical lowercase name.
func DefaultGenreAliases() map[string]string {
	return map[string]string{
		"sci-fi":             "science fiction",
		"scifi":              "science fiction",
		"science-fiction":    "science fiction",
		"sci-fi & fantasy":   "science fiction",
		"action & adventure": "action",
		"action/adventure":   "action",
		"war & politics":     "war",
		"tv movie":           "drama",
		"news":               "documentary",
		"reality":            "documentary",
		"talk":               "comedy",
		"soap":               "drama",
		"kids":               "family",
	}
}

// Normalizer canonicalizes attribute values so that profile keys and
// candidate values compare equal regardless of source casing.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer builds a normalizer. Alias keys and values are lowercased.
func NewNormalizer(genreAliases map[string]string) *Normalizer {
	n := &Normalizer{aliases: make(map[string]string, len(genreAliases))}
	for k, v := range genreAliases {
		n.aliases[canonical(k)] = canonical(v)
	}
	return n
}

// Value returns the canonical form of v for factor f. Empty results mean the
// value should be ignored.
func (n *Normalizer) Value(f Factor, v string) string {
	c := canonical(v)
	if f == FactorGenre && n != nil {
		if mapped, ok := n.aliases[c]; ok {
			return mapped
		}
	}
	return c
}

// Values normalizes and de-duplicates vs, preserving first-seen order.
func (n *Normalizer) Values(f Factor, vs []string) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, 0, len(vs))
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		c := n.Value(f, v)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func canonical(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
