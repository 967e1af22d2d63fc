// config.go: configuration for kestrel.LoadingCache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package kestrel

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Config holds the parameters a LoadingCache is constructed with. It is
// generic over the same K, V as the cache it configures.
type Config[K comparable, V any] struct {
	// CacheLoader produces and persists values. Required.
	CacheLoader Loader[K, V]

	// RefreshTime bounds how long a cached result is served without
	// triggering a background refresh. Must be <= SpoilTime.
	// Default: DefaultRefreshTime.
	RefreshTime time.Duration

	// SpoilTime bounds how long a cached result may be served at all,
	// even while a background refresh is in flight. Past this age the
	// entry is treated as empty and a caller blocks on a fresh load.
	// Default: DefaultSpoilTime.
	SpoilTime time.Duration

	// Timeout bounds how long a single Get call may wait for its result
	// before failing with a timeout error. It does not cancel the
	// underlying load or store. Set is not bounded by it; a Set waits for
	// Loader.Store under the caller's ctx. Default: DefaultTimeout.
	Timeout time.Duration

	// Logger receives state-transition diagnostics (load failures,
	// store-wins overrides, timeouts). If nil, NoOpLogger is used.
	Logger Logger

	// TimeProvider supplies "now" for age calculations. If nil, a
	// go-timecache-backed clock is used.
	TimeProvider TimeProvider

	// MetricsCollector receives aggregate counters. If nil,
	// NoOpMetricsCollector is used.
	MetricsCollector MetricsCollector
}

// Validate normalizes zero-valued fields to their defaults and rejects
// configurations that can never behave sensibly (no loader, or
// RefreshTime > SpoilTime).
func (c *Config[K, V]) Validate() error {
	if c.CacheLoader == nil {
		return NewInvalidConfigError("CacheLoader is required")
	}

	if c.RefreshTime <= 0 {
		c.RefreshTime = DefaultRefreshTime
	}
	if c.SpoilTime <= 0 {
		c.SpoilTime = DefaultSpoilTime
	}
	if c.RefreshTime > c.SpoilTime {
		return NewInvalidConfigError("RefreshTime must be <= SpoilTime")
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}

	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}

	return nil
}

// systemTimeProvider is the default TimeProvider, backed by
// go-timecache's cached clock — far cheaper than time.Now() on the read
// path of every Get call.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
