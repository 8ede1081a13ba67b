// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"movie", KindMovie, false},
		{"Movies", KindMovie, false},
		{" show ", KindShow, false},
		{"tv", KindShow, false},
		{"music", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttributes_Values(t *testing.T) {
	t.Parallel()
	a := Attributes{
		Genres:   []string{"drama"},
		Keywords: []string{"heist", "prison"},
		TopCast:  []string{"a", "b"},
	}

	if got := a.Values(FactorKeyword); !reflect.DeepEqual(got, []string{"heist", "prison"}) {
		t.Errorf("Values(keyword) = %v", got)
	}
	if got := a.Values(FactorDirector); got != nil {
		t.Errorf("Values(director) = %v, want nil for unknown director", got)
	}
	a.Director = "d"
	if got := a.Values(FactorDirector); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("Values(director) = %v, want [d]", got)
	}
	if a.IsEmpty() {
		t.Error("IsEmpty() = true for populated attributes")
	}
	if !(&Attributes{CollectionID: "c"}).IsEmpty() {
		t.Error("IsEmpty() = false for attributes with only a collection")
	}
}

func TestTasteProfile_Accessors(t *testing.T) {
	t.Parallel()
	var nilProfile *TasteProfile
	if !nilProfile.IsEmpty() {
		t.Error("nil profile should be empty")
	}

	p := NewTasteProfile("alice", KindMovie)
	if !p.IsEmpty() {
		t.Error("new profile should be empty")
	}
	for _, f := range Factors {
		if p.Weights(f) == nil {
			t.Errorf("Weights(%s) = nil, want allocated map", f)
		}
	}
	p.Watched["tt1"] = struct{}{}
	if !p.HasWatched("tt1") || p.HasWatched("tt2") {
		t.Error("HasWatched returned wrong result")
	}
}

func TestBreakdown_Factor(t *testing.T) {
	t.Parallel()
	b := Breakdown{Factors: []FactorScore{{Factor: FactorGenre, Raw: 3}}}
	if got := b.Factor(FactorGenre).Raw; got != 3 {
		t.Errorf("Factor(genre).Raw = %v, want 3", got)
	}
	if got := b.Factor(FactorActor); got.Factor != FactorActor || got.Raw != 0 {
		t.Errorf("Factor(actor) = %+v, want zero entry", got)
	}
}

func TestMediaKind_Merge(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rating := func(v float64) *float64 { return &v }

	first := WatchEvent{
		TitleID:    "tt1",
		WatchedAt:  t0,
		UserRating: rating(9),
		Attributes: Attributes{Genres: []string{"drama"}, Director: "nolan"},
	}
	second := WatchEvent{
		TitleID:    "tt1",
		WatchedAt:  t0.Add(24 * time.Hour),
		Dropped:    true,
		Attributes: Attributes{Genres: []string{"drama", "crime"}},
	}

	t.Run("movie duplicates are rewatches", func(t *testing.T) {
		got := Movie{}.Merge(first, second)
		if got.RewatchCount != 1 {
			t.Errorf("RewatchCount = %d, want 1", got.RewatchCount)
		}
		if got.UserRating == nil || *got.UserRating != 9 {
			t.Errorf("UserRating = %v, want 9 carried from earlier event", got.UserRating)
		}
		if got.Dropped {
			t.Error("movies never carry Dropped")
		}
		if !got.WatchedAt.Equal(second.WatchedAt) {
			t.Errorf("WatchedAt = %v, want latest", got.WatchedAt)
		}
		if !reflect.DeepEqual(got.Genres, []string{"drama", "crime"}) {
			t.Errorf("Genres = %v, want union", got.Genres)
		}
		if got.Director != "nolan" {
			t.Errorf("Director = %q, want nolan", got.Director)
		}
	})

	t.Run("show episodes do not multiply weight", func(t *testing.T) {
		ep := WatchEvent{TitleID: "s1", WatchedAt: t0}
		merged := ep
		for i := 1; i < 40; i++ {
			next := ep
			next.WatchedAt = t0.Add(time.Duration(i) * time.Hour)
			merged = Show{}.Merge(merged, next)
		}
		if merged.RewatchCount != 0 {
			t.Errorf("RewatchCount = %d after 40 episodes, want 0", merged.RewatchCount)
		}
	})

	t.Run("show keeps dropped and latest rating", func(t *testing.T) {
		got := Show{}.Merge(first, second)
		if !got.Dropped {
			t.Error("Dropped lost on merge")
		}
		if got.UserRating == nil || *got.UserRating != 9 {
			t.Errorf("UserRating = %v, want 9", got.UserRating)
		}
	})

	t.Run("capability lookup", func(t *testing.T) {
		mk, err := MediaKindFor(KindShow)
		if err != nil || !mk.HonorsDropped() {
			t.Errorf("MediaKindFor(show) = %v, %v", mk, err)
		}
		if _, err := MediaKindFor("music"); err == nil {
			t.Error("MediaKindFor(music) should fail")
		}
	})
}

func TestNormalizer(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(DefaultGenreAliases())

	if got := n.Value(FactorGenre, "  Sci-Fi "); got != "science fiction" {
		t.Errorf("Value(genre, Sci-Fi) = %q", got)
	}
	if got := n.Value(FactorKeyword, "sci-fi"); got != "sci-fi" {
		t.Errorf("aliases must only apply to genres, got %q", got)
	}
	if got := n.Value(FactorActor, "Tom   Hanks"); got != "tom hanks" {
		t.Errorf("Value(actor) = %q", got)
	}

	got := n.Values(FactorGenre, []string{"Action & Adventure", "action", "", "Drama"})
	if !reflect.DeepEqual(got, []string{"action", "drama"}) {
		t.Errorf("Values() = %v, want [action drama]", got)
	}

	var nilNorm *Normalizer
	if got := nilNorm.Value(FactorGenre, "Sci-Fi"); got != "sci-fi" {
		t.Errorf("nil normalizer Value() = %q, want sci-fi", got)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"missing attribute", &MissingAttributeError{TitleID: "tt1", Attribute: "director"}, ErrMissingAttribute},
		{"insufficient history", &InsufficientHistoryError{User: "a", Kind: KindMovie, Need: 1}, ErrInsufficientHistory},
		{"weight config", &InvalidWeightConfigError{Reason: "sum"}, ErrInvalidWeightConfig},
		{"cache corruption", &CacheCorruptionError{Scope: "a/movie", Err: io.ErrUnexpectedEOF}, ErrCacheCorruption},
		{"cache corruption cause", &CacheCorruptionError{Scope: "a/movie", Err: io.ErrUnexpectedEOF}, io.ErrUnexpectedEOF},
		{"wrapped", fmt.Errorf("user alice: %w", &InsufficientHistoryError{}), ErrInsufficientHistory},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.target) {
			t.Errorf("%s: errors.Is(%v, %v) = false", tt.name, tt.err, tt.target)
		}
	}

	var mae *MissingAttributeError
	if !errors.As(fmt.Errorf("wrap: %w", &MissingAttributeError{Attribute: "genres"}), &mae) || mae.Attribute != "genres" {
		t.Error("errors.As failed for MissingAttributeError")
	}
}
