// kestrel.go: package-level constants and defaults.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package kestrel

import "time"

const (
	// Version of the kestrel loading cache library.
	Version = "v0.1.0-dev"

	// DefaultRefreshTime is used when Config.RefreshTime is unset.
	DefaultRefreshTime = 1 * time.Second

	// DefaultSpoilTime is used when Config.SpoilTime is unset.
	DefaultSpoilTime = 10 * time.Second

	// DefaultTimeout is used when Config.Timeout is unset.
	DefaultTimeout = 2 * time.Second
)
