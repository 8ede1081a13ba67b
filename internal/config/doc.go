// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

/*
Package config provides centralized configuration management for Tastematch.

Configuration is assembled with Koanf v2 from four layers, later layers
overriding earlier ones:

  - Defaults: defaultConfig(), mirroring recommend.DefaultConfig and
    catalog.DefaultResilienceConfig
  - Config file: YAML, from the path passed to Load, CONFIG_PATH, or the first
    existing entry of DefaultConfigPaths
  - Environment: variables prefixed with TASTEMATCH_; a double underscore
    separates nested sections
  - Overrides: koanf paths supplied by the caller (command-line flags)

# Config File

	catalog:
	  library_path: /data/library.yaml
	  resilience:
	    timeout: 5s
	    max_retries: 2
	cache:
	  backend: badger
	  badger_path: /data/tastematch/badger
	recommend:
	  weights: {genre: 0.25, keyword: 0.5, actor: 0.2, director: 0.05}
	  selection:
	    movies: {target_count: 12, min_rating: 6.0, min_vote_count: 100}
	    user_excluded_genres:
	      alice: [horror]
	schedule:
	  interval: 6h

# Environment Variables

	TASTEMATCH_CACHE__BACKEND=redis
	TASTEMATCH_CACHE__REDIS__ADDR=redis:6379
	TASTEMATCH_RECOMMEND__RUN__CONCURRENCY=8
	TASTEMATCH_USERS=alice,bob          (comma-separated lists)
	TASTEMATCH_LOG_LEVEL=debug          (alias for logging.level)

Short aliases exist for the most common settings: LOG_LEVEL, LOG_FORMAT,
LIBRARY, CACHE_BACKEND, CACHE_DIR, REDIS_ADDR, METRICS_ADDR and INTERVAL.

# Validation

Load validates before returning. Struct tags are checked through the
validation package and report fields by their koanf path; the recommendation
parameters (weight sum, recency bracket coverage, rating monotonicity, tier
percentages) are checked by recommend.Config.Validate. Invalid factor weights
surface as recommend.ErrInvalidWeightConfig, which callers treat as fatal.
*/
package config
