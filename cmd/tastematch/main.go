// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tastematch/internal/api"
	"github.com/tomtom215/tastematch/internal/config"
	"github.com/tomtom215/tastematch/internal/logging"
	"github.com/tomtom215/tastematch/internal/recommend/catalog"
	"github.com/tomtom215/tastematch/internal/recommend/pipeline"
	"github.com/tomtom215/tastematch/internal/supervisor"
	"github.com/tomtom215/tastematch/internal/supervisor/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(opts.configPath, opts.overrides())
	if err != nil {
		fmt.Fprintf(stderr, "tastematch: %v\n", err)
		return 1
	}

	logCfg := cfg.Logging
	logCfg.Output = zerolog.SyncWriter(stderr)
	logging.Init(logCfg)
	logger := logging.WithComponent("main")

	app, err := newApp(ctx, cfg, stdout, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer app.close()

	if cfg.Periodic() {
		err = app.serve(ctx)
	} else {
		err = app.runOnce(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Batch failed")
		return 1
	}
	return 0
}

// app holds the wired components for one process lifetime.
type app struct {
	cfg    *config.Config
	engine *pipeline.Engine
	batch  *services.BatchService
	report *reportWriter
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newApp(ctx context.Context, cfg *config.Config, stdout io.Writer, logger zerolog.Logger) (*app, error) {
	kinds, err := cfg.MediaKinds()
	if err != nil {
		return nil, err
	}

	library, err := catalog.NewFileSource(cfg.Catalog.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	src := catalog.NewResilient(library, cfg.Catalog.Resilience, logging.WithComponent("catalog"))

	store, err := openStore(ctx, &cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open score cache: %w", err)
	}

	engine, err := pipeline.NewEngine(&cfg.Recommend, src, library, store, logging.Logger())
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close score cache")
		}
		return nil, err
	}

	logger.Info().
		Str("library", library.Path()).
		Str("cache", store.Name()).
		Strs("users", cfg.Users).
		Interface("kinds", kinds).
		Dur("interval", cfg.Schedule.Interval).
		Msg("Configuration loaded")

	report := newReportWriter(cfg.Output, stdout)
	batch := services.NewBatchService(engine, library, services.BatchServiceConfig{
		Interval:   cfg.Schedule.Interval,
		RunOnStart: cfg.Schedule.RunOnStart,
		RunTimeout: cfg.Schedule.RunTimeout,
		Users:      cfg.Users,
		Kinds:      kinds,
	}, logging.WithComponent("batch"))

	return &app{
		cfg:    cfg,
		engine: engine,
		batch:  batch,
		report: report,
		logger: logger,
	}, nil
}

// runOnce runs a single batch and writes its report. A canceled batch still
// reports what finished.
func (a *app) runOnce(ctx context.Context) error {
	summary, err := a.batch.RunOnce(ctx)
	if summary != nil {
		if werr := a.report.write(summary); werr != nil {
			return werr
		}
	}
	return err
}

// serve runs batches on schedule under the supervisor tree until ctx ends.
func (a *app) serve(ctx context.Context) error {
	a.batch.OnComplete = func(s *pipeline.RunSummary) {
		if err := a.report.write(s); err != nil {
			a.logger.Error().Err(err).Str("run_id", s.RunID).Msg("Failed to write report")
		}
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddBatchService(a.batch)

	if a.cfg.Metrics.Enabled {
		routerCfg := api.DefaultRouterConfig()
		// Two missed runs mark the service unready.
		routerCfg.StaleAfter = 2 * a.cfg.Schedule.Interval
		srv := services.NewStatusServer(a.cfg.Metrics.Addr, api.NewRouter(a.batch, routerCfg))
		tree.AddTelemetryService(services.NewStatusServerService(srv, 0))
		a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("Status server enabled")
	}

	a.logger.Info().Msg("Starting supervisor tree")
	err := tree.Serve(ctx)
	if ctx.Err() != nil {
		if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
			a.logger.Warn().Int("count", len(unstopped)).Msg("Services did not stop within the shutdown timeout")
		}
		a.logger.Info().Msg("Shutdown complete")
		return nil
	}
	return err
}

// close flushes the score cache.
func (a *app) close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close score cache")
	}
}
