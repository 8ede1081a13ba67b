// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

//go:build integration

// Package testinfra starts throwaway service containers for integration
// tests with testcontainers-go.
//
// Files here build only with the integration tag, so a plain go test run
// never needs Docker:
//
//	go test -tags integration ./internal/recommend/scorecache/...
//
// Tests call SkipIfNoDocker first and are skipped where no Docker daemon
// is reachable.
//
// # Redis
//
//	rc, err := testinfra.NewRedisContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, rc)
//
//	store, err := scorecache.NewRedisStore(ctx, scorecache.RedisConfig{Addr: rc.Addr})
package testinfra
