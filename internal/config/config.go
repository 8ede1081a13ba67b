// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/tastematch/internal/logging"
	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/catalog"
	"github.com/tomtom215/tastematch/internal/recommend/scorecache"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: TASTEMATCH_SECTION__FIELD
//  4. Overrides: values set by command-line flags
//
// Example:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    return err
//	}
//	engine, err := pipeline.NewEngine(&cfg.Recommend, src, src, store, logger)
type Config struct {
	// Recommend holds profile, scoring, selection and run parameters.
	Recommend recommend.Config `koanf:"recommend"`

	Catalog  CatalogConfig  `koanf:"catalog"`
	Cache    CacheConfig    `koanf:"cache"`
	Logging  logging.Config `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Output   OutputConfig   `koanf:"output"`

	// Users limits the run to these users. Empty means every user with history.
	Users []string `koanf:"users"`

	// Kinds lists the media kinds to recommend.
	// Default: [movie, show].
	Kinds []string `koanf:"kinds" validate:"min=1,dive,mediakind"`
}

// CatalogConfig locates the media library and tunes remote lookups.
type CatalogConfig struct {
	// LibraryPath is the JSON or YAML file holding candidates and watch history.
	LibraryPath string `koanf:"library_path" validate:"required"`

	// Resilience guards attribute lookups against a slow or failing catalog.
	Resilience catalog.ResilienceConfig `koanf:"resilience"`
}

// CacheConfig selects and configures the persisted score cache.
type CacheConfig struct {
	// Backend is memory, file, badger or redis.
	// Default: file.
	Backend string `koanf:"backend" validate:"oneof=memory file badger redis"`

	// Dir is the file backend's directory.
	// Default: /data/tastematch/cache.
	Dir string `koanf:"dir" validate:"required_if=Backend file"`

	// BadgerPath is the badger backend's database directory.
	// Default: /data/tastematch/badger.
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`

	// BadgerSyncWrites fsyncs every badger write.
	// Default: false.
	BadgerSyncWrites bool `koanf:"badger_sync_writes"`

	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Default: 127.0.0.1:6379.
	Addr     string `koanf:"addr" validate:"omitempty,hostname_port"`
	Password string `koanf:"password"`
	// Default: 0.
	DB int `koanf:"db" validate:"gte=0,lte=15"`
	// Default: tastematch:score:.
	KeyPrefix string `koanf:"key_prefix"`
	// TTL expires entries not rewritten within it (0 = never).
	// Default: 0.
	TTL time.Duration `koanf:"ttl" validate:"gte=0"`
}

// Store returns the scorecache view of the redis settings.
func (r RedisConfig) Store() scorecache.RedisConfig {
	return scorecache.RedisConfig{
		Addr:      r.Addr,
		Password:  r.Password,
		DB:        r.DB,
		KeyPrefix: r.KeyPrefix,
		TTL:       r.TTL,
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics while the process runs.
	// Default: false.
	Enabled bool `koanf:"enabled"`

	// Addr is the listen address.
	// Default: 127.0.0.1:9464.
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// ScheduleConfig controls periodic mode.
type ScheduleConfig struct {
	// Interval between batch runs. Zero runs a single batch and exits.
	// Default: 0.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// RunOnStart runs a batch immediately instead of waiting one interval.
	// Default: true.
	RunOnStart bool `koanf:"run_on_start"`

	// RunTimeout bounds a single batch (0 = unbounded).
	// Default: 30m.
	RunTimeout time.Duration `koanf:"run_timeout" validate:"gte=0"`
}

// OutputConfig controls the JSON run report.
type OutputConfig struct {
	// Path receives the report; "-" or empty writes to stdout.
	// Default: "-".
	Path string `koanf:"path"`

	// Pretty indents the report.
	// Default: true.
	Pretty bool `koanf:"pretty"`
}

// MediaKinds parses Kinds, dropping duplicates.
func (c *Config) MediaKinds() ([]recommend.Kind, error) {
	kinds := make([]recommend.Kind, 0, len(c.Kinds))
	seen := make(map[recommend.Kind]struct{}, len(c.Kinds))
	for _, s := range c.Kinds {
		k, err := recommend.ParseKind(s)
		if err != nil {
			return nil, fmt.Errorf("kinds: %w", err)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Periodic reports whether batches repeat on an interval.
func (c *Config) Periodic() bool {
	return c.Schedule.Interval > 0
}
