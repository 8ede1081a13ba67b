// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tastematch/internal/logging"
	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
)

// Response is the envelope of every JSON response.
type Response struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *Error      `json:"error,omitempty"`
}

// Metadata describes the data served.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
}

// Error is the machine-readable error body.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler serves the status endpoints.
type Handler struct {
	provider   SummaryProvider
	startTime  time.Time
	staleAfter time.Duration
	now        func() time.Time
}

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": h.now().Sub(h.startTime).Seconds(),
		},
		Metadata: Metadata{Timestamp: h.now()},
	})
}

// HealthReady returns 200 once a batch has completed and is not stale.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	last, runs := h.provider.Last()
	if last == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "no batch has completed yet")
		return
	}

	finished := last.StartedAt.Add(last.Duration)
	if h.staleAfter > 0 && h.now().Sub(finished) > h.staleAfter {
		respondError(w, http.StatusServiceUnavailable, "STALE", "last batch finished at "+finished.Format(time.RFC3339))
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data: map[string]interface{}{
			"ready":       true,
			"runs":        runs,
			"last_run_at": finished,
		},
		Metadata: Metadata{Timestamp: h.now(), RunID: last.RunID},
	})
}

// LatestRun returns the full summary of the most recent batch.
func (h *Handler) LatestRun(w http.ResponseWriter, _ *http.Request) {
	last, _ := h.provider.Last()
	if last == nil {
		respondError(w, http.StatusNotFound, "NO_RUNS", "no batch has completed yet")
		return
	}
	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     last,
		Metadata: Metadata{Timestamp: h.now(), RunID: last.RunID},
	})
}

// UserRecommendations returns one user's results from the latest batch.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	var kind recommend.Kind
	if q := r.URL.Query().Get("kind"); q != "" {
		k, err := recommend.ParseKind(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		kind = k
	}

	last, _ := h.provider.Last()
	if last == nil {
		respondError(w, http.StatusNotFound, "NO_RUNS", "no batch has completed yet")
		return
	}

	results := make([]pipeline.UserResult, 0, 2)
	for i := range last.Results {
		res := &last.Results[i]
		if !strings.EqualFold(res.User, user) || (kind != "" && res.Kind != kind) {
			continue
		}
		results = append(results, *res)
	}
	if len(results) == 0 {
		respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "no results for user in the latest batch")
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     results,
		Metadata: Metadata{Timestamp: h.now(), RunID: last.RunID},
	})
}

func respondJSON(w http.ResponseWriter, status int, response *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &Response{
		Status:   "error",
		Metadata: Metadata{Timestamp: time.Now()},
		Error:    &Error{Code: code, Message: message},
	})
}
