// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tastematch/internal/config"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
)

// reportWriter writes run summaries as JSON, to stdout or atomically to a file.
type reportWriter struct {
	mu     sync.Mutex
	path   string
	pretty bool
	stdout io.Writer
}

func newReportWriter(cfg config.OutputConfig, stdout io.Writer) *reportWriter {
	return &reportWriter{path: cfg.Path, pretty: cfg.Pretty, stdout: stdout}
}

func (w *reportWriter) write(summary *pipeline.RunSummary) error {
	var (
		data []byte
		err  error
	)
	if w.pretty {
		data, err = json.MarshalIndent(summary, "", "  ")
	} else {
		data, err = json.Marshal(summary)
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "" || w.path == "-" {
		if _, err := w.stdout.Write(data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	}
	return writeFileAtomic(w.path, data)
}

// writeFileAtomic replaces path so readers never see a partial report.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
