// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// Library is the document read by FileSource.
//
//	candidates:
//	  - title_id: tt0111161
//	    media_kind: movie
//	    genres: [Drama]
//	history:
//	  alice:
//	    - title_id: tt0068646
//	      media_kind: movie
//	      watched_at: 2026-01-02T20:00:00Z
//	      user_rating: 9
type Library struct {
	Candidates []recommend.Candidate             `json:"candidates" yaml:"candidates"`
	History    map[string][]recommend.WatchEvent `json:"history" yaml:"history"`
}

// FileSource serves a Library loaded from a JSON or YAML file. It implements
// Source and supplies watch history, so one file drives a whole offline run.
type FileSource struct {
	path  string
	lib   Library
	index map[string]int
}

// NewFileSource reads path. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}
	var lib Library
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&lib); err != nil {
			return nil, fmt.Errorf("parse library YAML %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("parse library JSON %s: %w", path, err)
		}
	}
	return NewLibrarySource(path, lib)
}

// NewLibrarySource serves an in-memory library. name is used as the source
// name in logs.
func NewLibrarySource(name string, lib Library) (*FileSource, error) {
	s := &FileSource{path: name, lib: lib, index: make(map[string]int, len(lib.Candidates))}
	for i := range lib.Candidates {
		c := &lib.Candidates[i]
		if c.TitleID == "" {
			return nil, fmt.Errorf("candidate %d has no title_id", i)
		}
		if c.Kind != recommend.KindMovie && c.Kind != recommend.KindShow {
			return nil, fmt.Errorf("candidate %q has media_kind %q, want %q or %q", c.TitleID, c.Kind, recommend.KindMovie, recommend.KindShow)
		}
		key := indexKey(c.Kind, c.TitleID)
		if _, dup := s.index[key]; dup {
			return nil, fmt.Errorf("duplicate candidate %q", c.TitleID)
		}
		s.index[key] = i
	}
	return s, nil
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Path returns the file the library was read from.
func (s *FileSource) Path() string { return s.path }

// Candidates implements Source.
func (s *FileSource) Candidates(ctx context.Context, kind recommend.Kind) ([]recommend.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []recommend.Candidate
	for i := range s.lib.Candidates {
		if s.lib.Candidates[i].Kind == kind {
			out = append(out, cloneCandidate(&s.lib.Candidates[i]))
		}
	}
	return out, nil
}

// Lookup implements Source.
func (s *FileSource) Lookup(ctx context.Context, kind recommend.Kind, titleID string) (recommend.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return recommend.Candidate{}, err
	}
	i, ok := s.index[indexKey(kind, titleID)]
	if !ok {
		return recommend.Candidate{}, fmt.Errorf("%s %q: %w", kind, titleID, ErrNotFound)
	}
	return cloneCandidate(&s.lib.Candidates[i]), nil
}

// WatchEvents returns user's events of kind. Unknown users have no history.
func (s *FileSource) WatchEvents(ctx context.Context, user string, kind recommend.Kind) ([]recommend.WatchEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []recommend.WatchEvent
	for _, ev := range s.lib.History[user] {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Users lists every user with history, sorted.
func (s *FileSource) Users(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := make([]string, 0, len(s.lib.History))
	for u := range s.lib.History {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

func indexKey(kind recommend.Kind, titleID string) string {
	return string(kind) + "/" + titleID
}

// cloneCandidate copies slices so callers cannot mutate the library.
func cloneCandidate(c *recommend.Candidate) recommend.Candidate {
	out := *c
	out.Genres = slices.Clone(c.Genres)
	out.Keywords = slices.Clone(c.Keywords)
	out.TopCast = slices.Clone(c.TopCast)
	return out
}
