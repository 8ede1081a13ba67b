// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/tastematch/internal/config"
	"github.com/tomtom215/tastematch/internal/recommend/scorecache"
)

// openStore opens the configured score cache backend.
func openStore(ctx context.Context, cfg *config.CacheConfig) (scorecache.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return scorecache.NewMemoryStore(), nil
	case config.BackendFile, "":
		return scorecache.NewFileStore(cfg.Dir)
	case config.BackendBadger:
		return scorecache.OpenBadgerStore(cfg.BadgerPath, cfg.BadgerSyncWrites)
	case config.BackendRedis:
		return scorecache.NewRedisStore(ctx, cfg.Redis.Store())
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
