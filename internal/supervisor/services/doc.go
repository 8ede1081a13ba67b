// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package services provides suture.Service wrappers for Tastematch components.

Each wrapper implements the suture v4 Service interface and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

Batch (BatchService):
  - Runs pipeline.Engine.RunBatch on a ticker, optionally once at start
  - Resolves the user list on every run through a UserLister unless users are fixed
  - Bounds each batch with RunTimeout; a canceled batch still reports its partial summary
  - Logs failed batches and retries on the next tick; only cancellation stops it
  - Keeps the last summary for the status endpoint

Status Server (StatusServerService):
  - Wraps *http.Server serving the api router (health, /metrics, latest run)
  - Converts ListenAndServe into Serve with graceful Shutdown on cancellation

# Example

	batch := services.NewBatchService(engine, library, services.BatchServiceConfig{
	    Interval:   cfg.Schedule.Interval,
	    RunOnStart: cfg.Schedule.RunOnStart,
	    RunTimeout: cfg.Schedule.RunTimeout,
	    Kinds:      kinds,
	}, logging.WithComponent("batch"))
	tree.AddBatchService(batch)
*/
package services
