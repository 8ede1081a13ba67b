// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package profile

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/recommend"
)

var asOf = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return asOf.Add(-time.Duration(d) * 24 * time.Hour)
}

func rating(v float64) *float64 { return &v }

func newBuilder(t *testing.T, kind recommend.MediaKind, modify func(*recommend.Config)) *Builder {
	t.Helper()
	cfg := recommend.DefaultConfig()
	if modify != nil {
		modify(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	b, err := NewBuilder(cfg, kind, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func movie(id string, watched time.Time, genres ...string) recommend.WatchEvent {
	return recommend.WatchEvent{
		TitleID:    id,
		Kind:       recommend.KindMovie,
		WatchedAt:  watched,
		Attributes: recommend.Attributes{Genres: genres},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewBuilder_Errors(t *testing.T) {
	t.Parallel()
	if _, err := NewBuilder(nil, recommend.Movie{}, zerolog.Nop()); err == nil {
		t.Error("NewBuilder(nil config) should fail")
	}
	if _, err := NewBuilder(recommend.DefaultConfig(), nil, zerolog.Nop()); err == nil {
		t.Error("NewBuilder(nil kind) should fail")
	}
}

func TestBuilder_ItemWeight(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	tests := []struct {
		name string
		ev   recommend.WatchEvent
		want float64
	}{
		{"recent unrated", recommend.WatchEvent{WatchedAt: daysAgo(3)}, 1.0},
		{"two months unrated", recommend.WatchEvent{WatchedAt: daysAgo(60)}, 0.75},
		{"old unrated", recommend.WatchEvent{WatchedAt: daysAgo(800)}, 0.10},
		{"future timestamp", recommend.WatchEvent{WatchedAt: asOf.Add(48 * time.Hour)}, 1.0},
		{"loved", recommend.WatchEvent{WatchedAt: daysAgo(3), UserRating: rating(10)}, 2.5},
		{"loved and old", recommend.WatchEvent{WatchedAt: daysAgo(200), UserRating: rating(10)}, 0.625},
		{"one rewatch", recommend.WatchEvent{WatchedAt: daysAgo(3), RewatchCount: 1}, 1 + math.Log(2)},
		{"disliked", recommend.WatchEvent{WatchedAt: daysAgo(3), UserRating: rating(2)}, -0.5},
		{"dropped ignored for movies", recommend.WatchEvent{WatchedAt: daysAgo(3), Dropped: true}, 1.0},
	}
	for _, tt := range tests {
		ev := tt.ev
		if got := b.ItemWeight(&ev, asOf); !approx(got, tt.want) {
			t.Errorf("%s: ItemWeight() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBuild_EmptyHistory(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	p, report := b.Build("alice", nil, asOf)
	if p == nil {
		t.Fatal("Build(nil) returned nil profile")
	}
	if !p.IsEmpty() || p.TotalItems != 0 {
		t.Errorf("TotalItems = %d, want 0", p.TotalItems)
	}
	if p.Fingerprint == "" {
		t.Error("empty profile should still have a fingerprint")
	}
	for _, f := range recommend.Factors {
		if len(p.Weights(f)) != 0 {
			t.Errorf("Weights(%s) not empty", f)
		}
	}
	if report.Events != 0 || report.Titles != 0 {
		t.Errorf("report = %+v, want zero counts", report)
	}

	again, _ := b.Build("alice", []recommend.WatchEvent{}, asOf)
	if again.Fingerprint != p.Fingerprint {
		t.Error("empty profile fingerprint is not deterministic")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	events := []recommend.WatchEvent{
		movie("tt1", daysAgo(5), "Drama", "Crime"),
		movie("tt2", daysAgo(50), "Drama"),
		movie("tt3", daysAgo(400), "Comedy"),
	}
	reversed := []recommend.WatchEvent{events[2], events[1], events[0]}

	p1, _ := b.Build("alice", events, asOf)
	p2, _ := b.Build("alice", reversed, asOf)

	if p1.Fingerprint != p2.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", p1.Fingerprint, p2.Fingerprint)
	}
	if !reflect.DeepEqual(p1.GenreWeights, p2.GenreWeights) {
		t.Errorf("genre weights differ: %v vs %v", p1.GenreWeights, p2.GenreWeights)
	}
	if got := p1.GenreWeights["drama"]; !approx(got, 1.75) {
		t.Errorf("drama weight = %v, want 1.75", got)
	}
	if got := p1.GenreWeights["comedy"]; !approx(got, 0.10) {
		t.Errorf("comedy weight = %v, want 0.10", got)
	}
}

func TestBuild_FingerprintTracksEffectiveWeight(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	base := []recommend.WatchEvent{movie("tt1", daysAgo(5), "Drama"), movie("tt2", daysAgo(100), "Comedy")}
	p0, _ := b.Build("alice", base, asOf)

	t.Run("rating change alters fingerprint", func(t *testing.T) {
		changed := slicesClone(base)
		changed[0].UserRating = rating(9)
		p, _ := b.Build("alice", changed, asOf)
		if p.Fingerprint == p0.Fingerprint {
			t.Error("fingerprint unchanged after rating change")
		}
	})

	t.Run("new event alters fingerprint", func(t *testing.T) {
		changed := append(slicesClone(base), movie("tt3", daysAgo(1), "Horror"))
		p, _ := b.Build("alice", changed, asOf)
		if p.Fingerprint == p0.Fingerprint {
			t.Error("fingerprint unchanged after adding an event")
		}
	})

	t.Run("attribute change alters fingerprint", func(t *testing.T) {
		changed := slicesClone(base)
		changed[1].Genres = []string{"Thriller"}
		p, _ := b.Build("alice", changed, asOf)
		if p.Fingerprint == p0.Fingerprint {
			t.Error("fingerprint unchanged after attribute change")
		}
	})

	t.Run("timestamp within same bracket keeps fingerprint", func(t *testing.T) {
		changed := slicesClone(base)
		changed[0].WatchedAt = daysAgo(6)
		p, _ := b.Build("alice", changed, asOf)
		if p.Fingerprint != p0.Fingerprint {
			t.Error("fingerprint changed although effective weights did not")
		}
	})
}

func slicesClone(in []recommend.WatchEvent) []recommend.WatchEvent {
	return append([]recommend.WatchEvent(nil), in...)
}

// A rating of 2 is a dislike: every attribute of the title receives a
// negative weight inside the configured negative range.
func TestBuild_NegativeRating(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	ev := movie("tt1", daysAgo(2), "Horror")
	ev.Keywords = []string{"gore", "slasher"}
	ev.TopCast = []string{"Actor A"}
	ev.Director = "Director D"
	ev.UserRating = rating(2)

	p, report := b.Build("alice", []recommend.WatchEvent{ev}, asOf)
	if report.Negative != 1 {
		t.Errorf("report.Negative = %d, want 1", report.Negative)
	}
	for _, f := range recommend.Factors {
		for v, w := range p.Weights(f) {
			if w >= 0 || w < -1.0 || w > -0.3 {
				t.Errorf("%s %q weight = %v, want within [-1.0, -0.3]", f, v, w)
			}
		}
	}
	if len(p.Collections) != 0 {
		t.Errorf("disliked titles must not count toward collections: %v", p.Collections)
	}
}

func TestBuild_NegativeCapPerEvent(t *testing.T) {
	t.Parallel()

	for _, negCap := range []float64{0.2, 0.5, 1.0} {
		b := newBuilder(t, recommend.Movie{}, func(c *recommend.Config) { c.Profile.NegativeCap = negCap })

		hated := movie("tt1", daysAgo(1), "Horror")
		hated.UserRating = rating(0)
		hated.RewatchCount = 5

		p, _ := b.Build("alice", []recommend.WatchEvent{hated}, asOf)
		if got := p.GenreWeights["horror"]; got < -negCap-1e-12 {
			t.Errorf("cap %v: single event moved weight to %v", negCap, got)
		}

		second := movie("tt2", daysAgo(1), "Horror")
		second.UserRating = rating(0)
		p, _ = b.Build("alice", []recommend.WatchEvent{hated, second}, asOf)
		if got := p.GenreWeights["horror"]; !approx(got, -2*negCap) {
			t.Errorf("cap %v: two events compounded to %v, want %v", negCap, got, -2*negCap)
		}
	}
}

func TestBuild_PositiveCap(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, func(c *recommend.Config) { c.Profile.PositiveCap = 2 })

	ev := movie("tt1", daysAgo(1), "Drama")
	ev.UserRating = rating(10)
	ev.RewatchCount = 10
	p, _ := b.Build("alice", []recommend.WatchEvent{ev}, asOf)
	if got := p.GenreWeights["drama"]; !approx(got, 2) {
		t.Errorf("drama weight = %v, want capped at 2", got)
	}
}

func TestBuild_ShowEpisodesCountOnce(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Show{}, nil)

	var events []recommend.WatchEvent
	for i := 0; i < 24; i++ {
		events = append(events, recommend.WatchEvent{
			TitleID:    "show-1",
			Kind:       recommend.KindShow,
			WatchedAt:  daysAgo(10 - i%5),
			Attributes: recommend.Attributes{Genres: []string{"Drama"}},
		})
	}

	p, report := b.Build("alice", events, asOf)
	if p.TotalItems != 1 || report.Titles != 1 {
		t.Errorf("TotalItems = %d, want 1", p.TotalItems)
	}
	if got := p.GenreWeights["drama"]; !approx(got, 1.0) {
		t.Errorf("drama weight = %v, want 1.0 for one show", got)
	}
}

func TestBuild_DroppedShow(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Show{}, nil)

	dropped := recommend.WatchEvent{
		TitleID:    "show-1",
		WatchedAt:  daysAgo(1),
		Dropped:    true,
		Attributes: recommend.Attributes{Genres: []string{"Reality"}},
	}
	p, _ := b.Build("alice", []recommend.WatchEvent{dropped}, asOf)
	if got := p.GenreWeights["documentary"]; !approx(got, -0.4) {
		t.Errorf("dropped show weight = %v, want -0.4", got)
	}

	dropped.UserRating = rating(8)
	p, _ = b.Build("alice", []recommend.WatchEvent{dropped}, asOf)
	if got := p.GenreWeights["documentary"]; !approx(got, 1.7) {
		t.Errorf("rated dropped show weight = %v, want 1.7 (explicit rating wins)", got)
	}
}

func TestBuild_SkipsMalformedEvents(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	events := []recommend.WatchEvent{
		movie("", daysAgo(1), "Drama"),
		{TitleID: "show-1", Kind: recommend.KindShow, WatchedAt: daysAgo(1)},
		movie("tt1", daysAgo(1), "Drama"),
		{TitleID: "tt2", WatchedAt: daysAgo(1)},
	}

	p, report := b.Build("alice", events, asOf)
	if report.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", report.Skipped)
	}
	if p.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", p.TotalItems)
	}
	if !p.HasWatched("tt2") {
		t.Error("title without attributes should still count as watched")
	}

	var missing int
	for _, err := range report.MissingAttributes {
		if errors.Is(err, recommend.ErrMissingAttribute) {
			missing++
		}
	}
	if missing != 2 {
		t.Errorf("missing attribute errors = %d, want 2 (title_id, attributes)", missing)
	}
}

func TestBuild_NormalizesAndCapsCast(t *testing.T) {
	t.Parallel()
	b := newBuilder(t, recommend.Movie{}, nil)

	ev := movie("tt1", daysAgo(1), "Sci-Fi", "Science Fiction", "ACTION & adventure")
	ev.TopCast = []string{"A", "B", "C", "D", "E"}
	ev.Director = " Villeneuve "
	ev.CollectionID = "dune"
	other := movie("tt2", daysAgo(1), "science fiction")
	other.CollectionID = "dune"

	p, _ := b.Build("alice", []recommend.WatchEvent{ev, other}, asOf)

	if got := p.GenreWeights["science fiction"]; !approx(got, 2) {
		t.Errorf("science fiction weight = %v, want 2 (aliases dedupe within a title)", got)
	}
	if _, ok := p.GenreWeights["action"]; !ok {
		t.Errorf("alias not applied: %v", p.GenreWeights)
	}
	if len(p.ActorWeights) != 3 {
		t.Errorf("ActorWeights = %v, want top 3 only", p.ActorWeights)
	}
	if _, ok := p.ActorWeights["d"]; ok {
		t.Error("fourth billed cast member should not contribute")
	}
	if _, ok := p.DirectorWeights["villeneuve"]; !ok {
		t.Errorf("DirectorWeights = %v, want villeneuve", p.DirectorWeights)
	}
	if got := p.Collections["dune"]; got != 2 {
		t.Errorf("Collections[dune] = %d, want 2", got)
	}
}
