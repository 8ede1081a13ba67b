// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package scorecache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tastematch/internal/recommend"
)

// fileFormatVersion is the envelope layout version of scope files.
const fileFormatVersion = 1

// fileEnvelope is the on-disk form of one scope.
type fileEnvelope struct {
	Version  int             `json:"version"`
	Scope    string          `json:"scope"`
	SavedAt  time.Time       `json:"saved_at"`
	Checksum string          `json:"checksum"`
	Entries  json.RawMessage `json:"entries"`
}

// fileScope is the in-memory copy of one scope file.
type fileScope struct {
	entries map[string]Entry
	dirty   bool
}

// FileStore keeps one gzip-compressed JSON document per scope under a
// directory. A scope is loaded on first access and written back on Flush by
// writing a temporary file, syncing it and renaming it over the old one, so a
// crash leaves either the old or the new document, never a partial one.
type FileStore struct {
	dir string

	mu     sync.Mutex
	scopes map[string]*fileScope
	closed bool
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for cache storage
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: dir, scopes: make(map[string]*fileScope)}, nil
}

// Name implements Store.
func (s *FileStore) Name() string { return "file" }

// Get implements Store. A scope that cannot be read or verified is replaced
// by an empty scope and the corruption is reported once.
func (s *FileStore) Get(_ context.Context, scope, candidateID string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Entry{}, false, ErrStoreClosed
	}
	sc, err := s.loadLocked(scope)
	e, ok := sc.entries[candidateID]
	return e, ok, err
}

// Put implements Store. The entry becomes durable on the next Flush.
func (s *FileStore) Put(_ context.Context, scope, candidateID string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	sc, _ := s.loadLocked(scope) //nolint:errcheck // corruption was reported by Get; overwrite proceeds
	sc.entries[candidateID] = *entry
	sc.dirty = true
	return nil
}

// Flush writes every dirty scope atomically.
func (s *FileStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Close flushes and closes the store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked(context.Background())
	s.closed = true
	return err
}

func (s *FileStore) flushLocked(ctx context.Context) error {
	var errs []error
	for scope, sc := range s.scopes {
		if !sc.dirty {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.writeScope(scope, sc.entries); err != nil {
			errs = append(errs, fmt.Errorf("write scope %q: %w", scope, err))
			continue
		}
		sc.dirty = false
	}
	return errors.Join(errs...)
}

// loadLocked returns the scope, reading it from disk on first access. The
// returned scope is never nil.
func (s *FileStore) loadLocked(scope string) (*fileScope, error) {
	if sc, ok := s.scopes[scope]; ok {
		return sc, nil
	}
	sc := &fileScope{entries: make(map[string]Entry)}
	s.scopes[scope] = sc

	entries, err := s.readScope(scope)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sc, nil
		}
		return sc, &recommend.CacheCorruptionError{Scope: scope, Err: err}
	}
	sc.entries = entries
	return sc, nil
}

func (s *FileStore) readScope(scope string) (map[string]Entry, error) {
	f, err := os.Open(s.scopePath(scope)) //nolint:gosec // path is derived from a sanitized scope
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported file version %d", env.Version)
	}
	hash := sha256.Sum256(env.Entries)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", env.Checksum, checksum)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(env.Entries, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

func (s *FileStore) writeScope(scope string, entries map[string]Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	hash := sha256.Sum256(payload)
	env := fileEnvelope{
		Version:  fileFormatVersion,
		Scope:    scope,
		SavedAt:  time.Now().UTC(),
		Checksum: hex.EncodeToString(hash[:]),
		Entries:  payload,
	}
	doc, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(doc); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".scope-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } //nolint:errcheck // best-effort temp cleanup

	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.scopePath(scope)); err != nil {
		cleanup()
		return fmt.Errorf("replace scope file: %w", err)
	}
	syncDir(s.dir)
	return nil
}

// scopePath maps a scope to a file name that is safe on every platform. The
// hash suffix keeps distinct scopes with equal sanitized names apart.
func (s *FileStore) scopePath(scope string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, scope)
	if len(safe) > 64 {
		safe = safe[:64]
	}
	sum := sha256.Sum256([]byte(scope))
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.json.gz", safe, hex.EncodeToString(sum[:4])))
}

// syncDir persists the rename on filesystems that need a directory fsync.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // dir is the configured cache directory
	if err != nil {
		return
	}
	_ = d.Sync()  //nolint:errcheck // not supported everywhere
	_ = d.Close() //nolint:errcheck // read-only handle
}
