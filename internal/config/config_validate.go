// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/tastematch/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules tags cannot
// express, then the recommendation parameters. Invalid factor weights wrap
// recommend.ErrInvalidWeightConfig.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateMetrics(); err != nil {
		return err
	}

	if err := c.validateUsers(); err != nil {
		return err
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

// validateCache checks backend-specific settings.
func (c *Config) validateCache() error {
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
	}
	return nil
}

// validateMetrics requires an address when the endpoint is enabled.
func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics.enabled is true")
	}
	return nil
}

// validateUsers rejects blank user names, which would match nobody.
func (c *Config) validateUsers() error {
	for i, u := range c.Users {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("users[%d] is blank", i)
		}
	}
	return nil
}
