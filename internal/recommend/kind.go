// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import "fmt"

// MediaKind is the capability the profile builder needs from a media type.
// Movie and show libraries differ only in how repeated events for the same
// title combine and whether "dropped" carries a signal.
type MediaKind interface {
	// Kind returns the media kind handled.
	Kind() Kind

	// Merge combines two events for the same title into one. next is the
	// later event in input order.
	Merge(prev, next WatchEvent) WatchEvent

	// HonorsDropped reports whether the Dropped flag is a preference signal.
	HonorsDropped() bool
}

// MediaKindFor returns the capability for k.
func MediaKindFor(k Kind) (MediaKind, error) {
	switch k {
	case KindMovie:
		return Movie{}, nil
	case KindShow:
		return Show{}, nil
	default:
		return nil, fmt.Errorf("unsupported media kind %q", k)
	}
}

// Movie treats repeated events for the same title as rewatches.
type Movie struct{}

func (Movie) Kind() Kind          { return KindMovie }
func (Movie) HonorsDropped() bool { return false }

//nolint:gocritic // events are small value types
func (Movie) Merge(prev, next WatchEvent) WatchEvent {
	merged := latest(prev, next)
	merged.RewatchCount = prev.RewatchCount + next.RewatchCount + 1
	merged.UserRating = latestRating(prev, next)
	merged.Attributes = unionAttributes(prev.Attributes, next.Attributes)
	merged.Dropped = false
	return merged
}

// Show collapses per-episode events into one unit per show. Episode counts
// never multiply weight; only explicit rewatches do.
type Show struct{}

func (Show) Kind() Kind          { return KindShow }
func (Show) HonorsDropped() bool { return true }

//nolint:gocritic // events are small value types
func (Show) Merge(prev, next WatchEvent) WatchEvent {
	merged := latest(prev, next)
	merged.RewatchCount = max(prev.RewatchCount, next.RewatchCount)
	merged.UserRating = latestRating(prev, next)
	merged.Attributes = unionAttributes(prev.Attributes, next.Attributes)
	return merged
}

//nolint:gocritic // events are small value types
func latest(a, b WatchEvent) WatchEvent {
	if a.WatchedAt.After(b.WatchedAt) {
		return a
	}
	return b
}

//nolint:gocritic // events are small value types
func latestRating(prev, next WatchEvent) *float64 {
	first, second := prev, next
	if prev.WatchedAt.After(next.WatchedAt) {
		first, second = next, prev
	}
	if second.UserRating != nil {
		return second.UserRating
	}
	return first.UserRating
}

//nolint:gocritic // attribute sets are small
func unionAttributes(a, b Attributes) Attributes {
	out := Attributes{
		Genres:       unionStrings(a.Genres, b.Genres),
		Keywords:     unionStrings(a.Keywords, b.Keywords),
		TopCast:      a.TopCast,
		Director:     a.Director,
		CollectionID: a.CollectionID,
	}
	if len(out.TopCast) == 0 {
		out.TopCast = b.TopCast
	}
	if out.Director == "" {
		out.Director = b.Director
	}
	if out.CollectionID == "" {
		out.CollectionID = b.CollectionID
	}
	return out
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
