// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tastematch/internal/logging"
	"github.com/tomtom215/tastematch/internal/recommend"
	"github.com/tomtom215/tastematch/internal/recommend/catalog"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"tastematch.yaml",
	"tastematch.yml",
	"/etc/tastematch/config.yaml",
	"/etc/tastematch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix prefixes every environment variable read into the config.
const EnvPrefix = "TASTEMATCH_"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	logCfg := logging.DefaultConfig()
	logCfg.Output = nil

	return &Config{
		Recommend: *recommend.DefaultConfig(),
		Catalog: CatalogConfig{
			LibraryPath: "",
			Resilience:  catalog.DefaultResilienceConfig(),
		},
		Cache: CacheConfig{
			Backend:    BackendFile,
			Dir:        "/data/tastematch/cache",
			BadgerPath: "/data/tastematch/badger",
			Redis: RedisConfig{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "tastematch:score:",
			},
		},
		Logging: logCfg,
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Schedule: ScheduleConfig{
			Interval:   0, // single batch
			RunOnStart: true,
			RunTimeout: 30 * time.Minute,
		},
		Output: OutputConfig{Path: "-", Pretty: true},
		Kinds:  []string{string(recommend.KindMovie), string(recommend.KindShow)},
	}
}

// Load builds the configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: path, or the first of CONFIG_PATH / DefaultConfigPaths that exists
//  3. Environment Variables: TASTEMATCH_-prefixed, "__" separates sections
//  4. Overrides: koanf paths set by the caller, typically from flags
//
// The returned configuration has passed Validate.
func Load(path string, overrides map[string]any) (*Config, error) {
	k, err := newKoanf(path, overrides)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newKoanf(path string, overrides map[string]any) (*koanf.Koanf, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional unless named explicitly)
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: Load environment variables
	// TASTEMATCH_CACHE__BACKEND -> cache.backend
	// TASTEMATCH_RECOMMEND__SELECTION__MOVIES__TARGET_COUNT -> recommend.selection.movies.target_count
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Layer 4: Caller overrides (highest priority)
	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	return k, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"users",
	"kinds",
	"recommend.selection.excluded_genres",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars and flags arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envAliases are short names for the settings changed most often.
var envAliases = map[string]string{
	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"library":       "catalog.library_path",
	"cache_backend": "cache.backend",
	"cache_dir":     "cache.dir",
	"redis_addr":    "cache.redis.addr",
	"metrics_addr":  "metrics.addr",
	"interval":      "schedule.interval",
}

// envTransformFunc maps TASTEMATCH_ environment variables to koanf paths.
//
// Examples:
//   - TASTEMATCH_LOG_LEVEL -> logging.level
//   - TASTEMATCH_CACHE__REDIS__ADDR -> cache.redis.addr
//   - TASTEMATCH_USERS -> users
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	if mapped, ok := envAliases[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "__", ".")
}
