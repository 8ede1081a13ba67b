// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator so struct metadata is
// cached once per process. Fields are reported by their koanf key, which makes
// the messages line up with the YAML config file and TASTEMATCH_ environment
// variables:
//
//	type CacheConfig struct {
//	    Backend string `koanf:"backend" validate:"oneof=memory file badger redis"`
//	    Dir     string `koanf:"dir" validate:"required_if=Backend file"`
//	}
//
//	if err := validation.ValidateStruct(&cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
//	// invalid configuration: cache.dir is required when Backend file
//
// # Custom Tags
//
//   - mediakind: string accepted by recommend.ParseKind (movie, show, tv, ...)
//   - fraction: float in [0, 1]
//
// Callers that need individual failures use errors.As with *Error and
// iterate Errors(); each FieldError exposes Field, Tag, Param and Value.
package validation
