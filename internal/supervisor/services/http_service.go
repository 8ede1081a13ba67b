// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown of the status server.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPServer matches the *http.Server lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// NewStatusServer returns an *http.Server for the status router with
// conservative timeouts; the endpoint is read-only and small.
func NewStatusServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StatusServerService runs the status/metrics HTTP server under supervision.
//
//	srv := services.NewStatusServer(cfg.Metrics.Addr, api.NewRouter(batch, api.DefaultRouterConfig()))
//	tree.AddTelemetryService(services.NewStatusServerService(srv, 0))
type StatusServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewStatusServerService wraps server. A non-positive shutdownTimeout uses
// DefaultShutdownTimeout.
func NewStatusServerService(server HTTPServer, shutdownTimeout time.Duration) *StatusServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &StatusServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "status-server",
	}
}

// Serve implements suture.Service. It returns a wrapped error when the
// listener fails so the supervisor restarts it, and ctx.Err() after a
// graceful shutdown. http.ErrServerClosed is expected on shutdown.
func (h *StatusServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The original context is already canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture's log messages.
func (h *StatusServerService) String() string {
	return h.name
}
