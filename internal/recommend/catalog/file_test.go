// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tomtom215/tastematch/internal/recommend"
)

const libraryYAML = `
candidates:
  - title_id: tt0047478
    media_kind: movie
    title: Seven Samurai
    year: 1954
    rating: 8.6
    vote_count: 360000
    genres: [Action, Drama]
    director: Akira Kurosawa
  - title_id: tt0903747
    media_kind: show
    title: Breaking Bad
    genres: [Crime, Drama]
history:
  alice:
    - title_id: tt0080979
      media_kind: movie
      watched_at: 2026-01-10T20:00:00Z
      user_rating: 9
      genres: [Drama]
      director: Akira Kurosawa
    - title_id: tt0141842
      media_kind: show
      watched_at: 2025-12-01T20:00:00Z
      dropped: true
  bob: []
`

const libraryJSON = `{
  "candidates": [
    {"title_id": "tt0047478", "media_kind": "movie", "title": "Seven Samurai", "year": 1954,
     "rating": 8.6, "vote_count": 360000, "genres": ["Action", "Drama"], "director": "Akira Kurosawa"},
    {"title_id": "tt0903747", "media_kind": "show", "title": "Breaking Bad", "genres": ["Crime", "Drama"]}
  ],
  "history": {
    "alice": [
      {"title_id": "tt0080979", "media_kind": "movie", "watched_at": "2026-01-10T20:00:00Z",
       "user_rating": 9, "genres": ["Drama"], "director": "Akira Kurosawa"},
      {"title_id": "tt0141842", "media_kind": "show", "watched_at": "2025-12-01T20:00:00Z", "dropped": true}
    ],
    "bob": []
  }
}`

func writeLibrary(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSource_Formats(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{"library.yaml": libraryYAML, "library.json": libraryJSON} {
		t.Run(name, func(t *testing.T) {
			src, err := NewFileSource(writeLibrary(t, name, content))
			if err != nil {
				t.Fatalf("NewFileSource() error = %v", err)
			}
			ctx := context.Background()

			movies, err := src.Candidates(ctx, recommend.KindMovie)
			if err != nil || len(movies) != 1 {
				t.Fatalf("Candidates(movie) = %v, %v", movies, err)
			}
			m := movies[0]
			if m.Title != "Seven Samurai" || m.VoteCount != 360000 || m.Director != "Akira Kurosawa" ||
				!reflect.DeepEqual(m.Genres, []string{"Action", "Drama"}) {
				t.Errorf("movie = %+v", m)
			}

			events, err := src.WatchEvents(ctx, "alice", recommend.KindMovie)
			if err != nil || len(events) != 1 {
				t.Fatalf("WatchEvents() = %v, %v", events, err)
			}
			ev := events[0]
			if ev.UserRating == nil || *ev.UserRating != 9 || ev.WatchedAt.IsZero() || ev.Director != "Akira Kurosawa" {
				t.Errorf("event = %+v", ev)
			}

			shows, _ := src.WatchEvents(ctx, "alice", recommend.KindShow)
			if len(shows) != 1 || !shows[0].Dropped {
				t.Errorf("show events = %+v", shows)
			}

			users, _ := src.Users(ctx)
			if !reflect.DeepEqual(users, []string{"alice", "bob"}) {
				t.Errorf("Users() = %v", users)
			}
		})
	}
}

func TestFileSource_Lookup(t *testing.T) {
	t.Parallel()
	src, err := NewFileSource(writeLibrary(t, "lib.yml", libraryYAML))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	c, err := src.Lookup(ctx, recommend.KindMovie, "tt0047478")
	if err != nil || c.Year != 1954 {
		t.Errorf("Lookup() = %+v, %v", c, err)
	}
	c.Genres[0] = "mutated"
	again, _ := src.Lookup(ctx, recommend.KindMovie, "tt0047478")
	if again.Genres[0] != "Action" {
		t.Error("Lookup() result aliases library storage")
	}

	if _, err := src.Lookup(ctx, recommend.KindShow, "tt0047478"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() with wrong kind error = %v, want ErrNotFound", err)
	}
}

func TestFileSource_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "lib.json", `{"candidates": [`},
		{"unknown yaml field", "lib.yaml", "candidates: []\nextra: 1\n"},
		{"missing id", "lib.json", `{"candidates": [{"media_kind": "movie"}]}`},
		{"bad kind", "lib.json", `{"candidates": [{"title_id": "tt1", "media_kind": "podcast"}]}`},
		{"duplicate", "lib.json", `{"candidates": [{"title_id": "tt1", "media_kind": "movie"}, {"title_id": "tt1", "media_kind": "movie"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFileSource(writeLibrary(t, tt.file, tt.content)); err == nil {
				t.Error("NewFileSource() succeeded")
			}
		})
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestFileSource_CanceledContext(t *testing.T) {
	t.Parallel()
	src, _ := NewLibrarySource("mem", Library{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Candidates(ctx, recommend.KindMovie); !errors.Is(err, context.Canceled) {
		t.Errorf("Candidates() error = %v", err)
	}
}
