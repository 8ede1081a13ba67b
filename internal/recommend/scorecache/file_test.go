// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/tastematch/internal/recommend"
)

func entryFor(id, fingerprint string, score float64) *Entry {
	return &Entry{
		Schema:       SchemaVersion,
		Fingerprint:  fingerprint,
		ScorerDigest: "d",
		Result:       recommend.ScoreResult{CandidateID: id, Composite: score, ProfileFingerprint: fingerprint},
		ComputedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFileStore_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp", 0.7)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := s2.Get(ctx, "alice/movie", "tt1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Result.Composite != 0.7 || got.Fingerprint != "fp" || !got.ComputedAt.Equal(entryFor("", "", 0).ComputedAt) {
		t.Errorf("entry = %+v", got)
	}
	if _, ok, _ := s2.Get(ctx, "bob/movie", "tt1"); ok {
		t.Error("scopes must be isolated")
	}
}

func TestFileStore_FlushLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		_ = s.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp", float64(i)))
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("directory has %d files, want 1", len(files))
	}
	if name := files[0].Name(); strings.HasSuffix(name, ".tmp") || !strings.HasSuffix(name, ".json.gz") {
		t.Errorf("unexpected file %q", name)
	}
}

func TestFileStore_CorruptScopeIsColdStart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, _ := NewFileStore(dir)
	_ = s1.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp", 0.5))
	_ = s1.Close()
	path := s1.scopePath("alice/movie")

	tests := []struct {
		name    string
		corrupt func(t *testing.T)
	}{
		{"truncated", func(t *testing.T) {
			data, _ := os.ReadFile(path)
			if err := os.WriteFile(path, data[:len(data)/2], 0o600); err != nil {
				t.Fatal(err)
			}
		}},
		{"not gzip", func(t *testing.T) {
			if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
				t.Fatal(err)
			}
		}},
		{"checksum mismatch", func(t *testing.T) {
			var buf bytes.Buffer
			gzw := gzip.NewWriter(&buf)
			_, _ = gzw.Write([]byte(`{"version":1,"scope":"alice/movie","checksum":"00","entries":{}}`))
			_ = gzw.Close()
			if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.corrupt(t)
			s, _ := NewFileStore(dir)

			_, ok, err := s.Get(ctx, "alice/movie", "tt1")
			if ok {
				t.Error("corrupt scope returned an entry")
			}
			if !errors.Is(err, recommend.ErrCacheCorruption) {
				t.Errorf("Get() error = %v, want ErrCacheCorruption", err)
			}
			if _, _, err := s.Get(ctx, "alice/movie", "tt2"); err != nil {
				t.Errorf("corruption reported twice: %v", err)
			}

			// Overwriting repairs the scope.
			_ = s.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp", 0.9))
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			repaired, _ := NewFileStore(dir)
			e, ok, err := repaired.Get(ctx, "alice/movie", "tt1")
			if err != nil || !ok || e.Result.Composite != 0.9 {
				t.Errorf("repaired Get() = %+v, %v, %v", e, ok, err)
			}
		})
	}
}

func TestFileStore_ScopePathSanitized(t *testing.T) {
	t.Parallel()
	s, _ := NewFileStore(t.TempDir())

	a := s.scopePath("../../etc/passwd")
	if filepath.Dir(a) != s.dir {
		t.Errorf("scope escaped cache dir: %s", a)
	}
	if s.scopePath("a/b") == s.scopePath("a_b") {
		t.Error("distinct scopes mapped to the same file")
	}
}

func TestFileStore_Closed(t *testing.T) {
	t.Parallel()
	s, _ := NewFileStore(t.TempDir())
	_ = s.Close()
	if err := s.Put(context.Background(), "s", "tt1", entryFor("tt1", "fp", 1)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Put() after Close = %v, want ErrStoreClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewBadgerStore(newInMemoryBadger(t))

	if _, ok, err := s.Get(ctx, "alice/movie", "tt1"); ok || err != nil {
		t.Fatalf("Get() on empty store = %v, %v", ok, err)
	}
	_ = s.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp", 0.3))
	_ = s.Put(ctx, "alice/movie", "tt1", entryFor("tt1", "fp2", 0.4))

	e, ok, err := s.Get(ctx, "alice/movie", "tt1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if e.Fingerprint != "fp2" || e.Result.Composite != 0.4 {
		t.Errorf("entry not replaced whole: %+v", e)
	}
	if _, ok, _ := s.Get(ctx, "bob/movie", "tt1"); ok {
		t.Error("entry leaked across scopes")
	}
}

func TestBadgerStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	db := newInMemoryBadger(t)
	s := NewBadgerStore(db)

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey("alice/movie", "tt1"), []byte("not json"))
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(ctx, "alice/movie", "tt1"); !errors.Is(err, recommend.ErrCacheCorruption) {
		t.Errorf("Get() error = %v, want ErrCacheCorruption", err)
	}
}
