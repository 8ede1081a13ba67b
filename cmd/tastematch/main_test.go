// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tastematch/internal/config"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
)

const testLibraryYAML = `candidates:
  - title_id: tt001
    media_kind: movie
    title: Ikiru
    rating: 8.3
    vote_count: 80000
    genres: [Drama]
    director: Akira Kurosawa
  - title_id: tt002
    media_kind: movie
    title: Seven Samurai
    rating: 8.6
    vote_count: 360000
    genres: [Drama, Action]
    director: Akira Kurosawa
  - title_id: tt003
    media_kind: movie
    title: Halloween
    rating: 7.7
    vote_count: 300000
    genres: [Horror]
    director: John Carpenter
  - title_id: tt004
    media_kind: movie
    title: Cleo from 5 to 7
    rating: 7.8
    vote_count: 30000
    genres: [Drama]
    director: Agnes Varda
history:
  alice:
    - title_id: tt001
      media_kind: movie
      watched_at: 2026-01-02T20:00:00Z
      user_rating: 9
      genres: [Drama]
      director: Akira Kurosawa
`

func writeLibrary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(testLibraryYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Once(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	library := writeLibrary(t)
	report := filepath.Join(t.TempDir(), "out", "report.json")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--library", library,
		"--cache", "memory",
		"--kinds", "movie",
		"--output", report,
		"--once",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var summary pipeline.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if summary.Users != 1 || summary.Succeeded != 1 {
		t.Fatalf("summary = %+v, want one successful pair", summary)
	}
	res := summary.Results[0]
	if res.User != "alice" || res.Selection == nil {
		t.Fatalf("result = %+v", res)
	}
	for _, item := range res.Selection.Items {
		if item.Candidate.TitleID == "tt001" {
			t.Error("watched title recommended")
		}
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want report only in file", stdout.String())
	}
}

func TestRun_ReportToStdout(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	library := writeLibrary(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--library", library, "--cache", "memory", "--output", "-", "--compact", "--once",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if bytes.Count(stdout.Bytes(), []byte("\n")) != 1 {
		t.Errorf("compact report spans several lines:\n%s", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown flag", []string{"--bogus"}, 2},
		{"help", []string{"-h"}, 0},
		{"missing library", []string{"--library", filepath.Join(t.TempDir(), "absent.json"), "--cache", "memory"}, 1},
		{"bad kind", []string{"--library", "x.json", "--kinds", "vinyl"}, 1},
		{"missing config file", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(context.Background(), tt.args, &stdout, &stderr); got != tt.code {
				t.Errorf("run() = %d, want %d; stderr:\n%s", got, tt.code, stderr.String())
			}
		})
	}
}

func TestRun_PeriodicStopsOnCancel(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	library := writeLibrary(t)
	report := filepath.Join(t.TempDir(), "report.json")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{
			"--library", library, "--cache", "memory", "--output", report, "--interval", "1h",
		}, &stdout, &stderr)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(report); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("first periodic run never wrote a report")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("run() = %d after cancel, stderr:\n%s", code, stderr.String())
		}
	case <-time.After(time.Minute):
		t.Fatal("run() did not return after cancel")
	}
}

func TestCLIOptions_Overrides(t *testing.T) {
	opts, err := parseFlags([]string{
		"--library", "lib.json",
		"--users", "alice,bob",
		"--metrics-addr", "127.0.0.1:9000",
		"--interval", "6h",
		"--compact",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"catalog.library_path": "lib.json",
		"users":                "alice,bob",
		"metrics.addr":         "127.0.0.1:9000",
		"metrics.enabled":      true,
		"schedule.interval":    6 * time.Hour,
		"output.pretty":        false,
	}
	if got := opts.overrides(); !reflect.DeepEqual(got, want) {
		t.Errorf("overrides() = %v, want %v", got, want)
	}

	opts, err = parseFlags([]string{"--interval", "6h", "--once"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if got := opts.overrides()["schedule.interval"]; got != time.Duration(0) {
		t.Errorf("--once interval = %v, want 0", got)
	}

	opts, _ = parseFlags(nil, &bytes.Buffer{})
	if got := opts.overrides(); len(got) != 0 {
		t.Errorf("no flags produced overrides %v", got)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		cfg  config.CacheConfig
		name string
	}{
		{config.CacheConfig{Backend: config.BackendMemory}, "memory"},
		{config.CacheConfig{Backend: config.BackendFile, Dir: filepath.Join(dir, "cache")}, "file"},
		{config.CacheConfig{Backend: config.BackendBadger, BadgerPath: filepath.Join(dir, "badger")}, "badger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := openStore(ctx, &tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			if store.Name() != tt.name {
				t.Errorf("Name() = %q", store.Name())
			}
		})
	}

	if _, err := openStore(ctx, &config.CacheConfig{Backend: "tape"}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestReportWriter_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w := newReportWriter(config.OutputConfig{Path: path}, &bytes.Buffer{})

	for _, id := range []string{"run-1", "run-2"} {
		if err := w.write(&pipeline.RunSummary{RunID: id}); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got pipeline.RunSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-2" {
		t.Errorf("RunID = %q, want latest run", got.RunID)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
