// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordCacheLookup(t *testing.T) {
	hitsBefore := testutil.ToFloat64(ScoreCacheHits.WithLabelValues("test-lookup"))
	staleBefore := testutil.ToFloat64(ScoreCacheMisses.WithLabelValues("test-lookup", "stale"))

	RecordCacheLookup("test-lookup", true, "ignored")
	RecordCacheLookup("test-lookup", false, "stale")
	RecordCacheLookup("test-lookup", false, "stale")

	if got := testutil.ToFloat64(ScoreCacheHits.WithLabelValues("test-lookup")) - hitsBefore; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ScoreCacheMisses.WithLabelValues("test-lookup", "stale")) - staleBefore; got != 2 {
		t.Errorf("stale misses delta = %v, want 2", got)
	}
}

func TestRecordCatalogLookup(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("timeout"), "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(CatalogLookups.WithLabelValues("test-catalog", tt.result))
			RecordCatalogLookup("test-catalog", 10*time.Millisecond, tt.err)
			after := testutil.ToFloat64(CatalogLookups.WithLabelValues("test-catalog", tt.result))
			if after-before != 1 {
				t.Errorf("%s lookups delta = %v, want 1", tt.result, after-before)
			}
		})
	}
}

func TestRecordRun(t *testing.T) {
	RunLastSuccess.Set(0)
	RecordRun(time.Second, 2)
	if got := testutil.ToFloat64(RunLastSuccess); got != 0 {
		t.Errorf("last success = %v after failed run, want 0", got)
	}

	RecordRun(time.Second, 0)
	if got := testutil.ToFloat64(RunLastSuccess); got <= 0 {
		t.Errorf("last success = %v after clean run, want unix timestamp", got)
	}
}

func TestRecordStatusRequest(t *testing.T) {
	before := testutil.ToFloat64(StatusRequests.WithLabelValues("GET", "/test/{id}", "200"))
	RecordStatusRequest("GET", "/test/{id}", "200", 5*time.Millisecond)
	if got := testutil.ToFloat64(StatusRequests.WithLabelValues("GET", "/test/{id}", "200")) - before; got != 1 {
		t.Errorf("requests delta = %v, want 1", got)
	}

	active := testutil.ToFloat64(StatusActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(StatusActiveRequests); got != active+1 {
		t.Errorf("active = %v, want %v", got, active+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(StatusActiveRequests); got != active {
		t.Errorf("active = %v after finish, want %v", got, active)
	}
}

func TestCircuitStateValue(t *testing.T) {
	tests := map[string]float64{
		"closed":    0,
		"half-open": 1,
		"open":      2,
		"unknown":   0,
	}
	for state, want := range tests {
		if got := CircuitStateValue(state); got != want {
			t.Errorf("CircuitStateValue(%q) = %v, want %v", state, got, want)
		}
	}

	CircuitBreakerState.WithLabelValues("test-breaker").Set(CircuitStateValue("open"))
	var m dto.Metric
	if err := CircuitBreakerState.WithLabelValues("test-breaker").Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 2 {
		t.Errorf("gauge value = %v, want 2", got)
	}
}

// TestConcurrentMetricRecording tests thread safety of metric recording
func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 50
	operationsPerGoroutine := 20

	before := testutil.ToFloat64(ScoreCacheHits.WithLabelValues("test-concurrent"))

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				RecordCacheLookup("test-concurrent", true, "")
				RecordCatalogLookup("test-concurrent", time.Duration(j)*time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()

	got := testutil.ToFloat64(ScoreCacheHits.WithLabelValues("test-concurrent")) - before
	if want := float64(numGoroutines * operationsPerGoroutine); got != want {
		t.Errorf("hits delta = %v, want %v", got, want)
	}
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		ProfileBuilds,
		ProfileEventsSkipped,
		ProfileItems,
		ScoreComputations,
		ScoreCacheHits,
		ScoreCacheMisses,
		ScoreCacheCorruptions,
		ScoreCacheWriteDuration,
		CatalogLookups,
		CatalogLookupDuration,
		CatalogRetries,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		SelectedItems,
		SelectionShortfalls,
		RunDuration,
		RunUsers,
		RunLastSuccess,
		AppInfo,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("collector has no descriptors")
		}
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordCatalogLookup("test-gather", time.Millisecond, nil)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordCacheLookup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordCacheLookup("bench", i%2 == 0, "absent")
	}
}
