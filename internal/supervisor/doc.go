// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package supervisor provides process supervision for periodic mode using suture v4.

	RootSupervisor ("tastematch")
	├── BatchSupervisor ("batch-layer")
	│   └── BatchService
	└── TelemetrySupervisor ("telemetry-layer")
	    └── StatusServerService (if metrics.enabled)

A crash in the status listener restarts only the telemetry layer; a batch in
progress keeps running. Supervisor events (service panics, restarts, backoff)
are logged through sutureslog into the zerolog logger via
logging.NewSlogLogger.

# Shutdown

Canceling the context passed to Serve stops every service. ShutdownTimeout
must be long enough for a canceled batch to flush its score cache; services
still running after it are listed by UnstoppedServiceReport.

# Usage

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddBatchService(batch)
	tree.AddTelemetryService(services.NewStatusServerService(srv, 0))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}
*/
package supervisor
