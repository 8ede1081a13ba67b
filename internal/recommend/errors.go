// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAttribute marks an event or candidate lacking an attribute a
	// factor needs. Non-fatal: the factor counts as "no match" for that item.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrInvalidWeightConfig marks factor weights that are negative or do not
	// sum to 1. Fatal at startup.
	ErrInvalidWeightConfig = errors.New("invalid weight config")

	// ErrCacheCorruption marks an unreadable or malformed score cache.
	// Non-fatal: the cache is treated as empty.
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrInsufficientHistory marks a user with too few watch events. The user
	// is skipped for the run.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// MissingAttributeError records which attribute an item lacked.
type MissingAttributeError struct {
	TitleID   string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	if e.TitleID == "" {
		return fmt.Sprintf("%s: %s", ErrMissingAttribute, e.Attribute)
	}
	return fmt.Sprintf("%s: %s on %q", ErrMissingAttribute, e.Attribute, e.TitleID)
}

func (e *MissingAttributeError) Unwrap() error { return ErrMissingAttribute }

// InsufficientHistoryError reports how much history a skipped user had.
type InsufficientHistoryError struct {
	User string
	Kind Kind
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: user %q has %d %s events, need %d", ErrInsufficientHistory, e.User, e.Have, e.Kind, e.Need)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// InvalidWeightConfigError explains why factor weights were rejected.
type InvalidWeightConfigError struct {
	Reason string
}

func (e *InvalidWeightConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidWeightConfig, e.Reason)
}

func (e *InvalidWeightConfigError) Unwrap() error { return ErrInvalidWeightConfig }

// CacheCorruptionError wraps the underlying decode or checksum failure.
type CacheCorruptionError struct {
	Scope string
	Err   error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("%s in scope %q: %v", ErrCacheCorruption, e.Scope, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *CacheCorruptionError) Unwrap() []error { return []error{ErrCacheCorruption, e.Err} }
