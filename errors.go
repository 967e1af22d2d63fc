// errors.go: structured error taxonomy for kestrel cache operations
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error codes
// for all cache operations. Per the coordination contract, a timeout error
// must be distinguishable from a loader error — callers do this with
// errors.HasCode, never a type assertion.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package kestrel

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for kestrel cache operations.
const (
	// Configuration errors
	ErrCodeInvalidConfig errors.ErrorCode = "KESTREL_INVALID_CONFIG"

	// Loader errors
	ErrCodeLoadFailed       errors.ErrorCode = "KESTREL_LOAD_FAILED"
	ErrCodeStoreFailed      errors.ErrorCode = "KESTREL_STORE_FAILED"
	ErrCodeUnsupportedStore errors.ErrorCode = "KESTREL_UNSUPPORTED_STORE"

	// Coordination errors
	ErrCodeTimeout        errors.ErrorCode = "KESTREL_TIMEOUT"
	ErrCodePanicRecovered errors.ErrorCode = "KESTREL_PANIC_RECOVERED"
)

const (
	msgInvalidConfig    = "invalid loading cache configuration"
	msgLoadFailed       = "loader failed to produce a value"
	msgStoreFailed      = "loader failed to persist a value"
	msgUnsupportedStore = "loader does not support Store"
	msgTimeout          = "get timed out waiting for a result"
	msgPanicRecovered   = "panic recovered in loader call"
)

// NewInvalidConfigError reports a Config that cannot be normalized into a
// usable LoadingCache (missing loader, RefreshTime > SpoilTime, ...).
func NewInvalidConfigError(reason string) error {
	return errors.NewWithField(ErrCodeInvalidConfig, msgInvalidConfig, "reason", reason)
}

// NewLoadError wraps a Loader.Load failure. It is delivered identically
// to every current waiter of the failed load.
func NewLoadError(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeLoadFailed, msgLoadFailed).
		WithContext("key", key).
		AsRetryable()
}

// NewStoreError wraps a Loader.Store failure. It is delivered only to the
// Set caller that triggered the store.
func NewStoreError(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeStoreFailed, msgStoreFailed).
		WithContext("key", key).
		AsRetryable()
}

// NewUnsupportedStoreError reports that a Loader built from LoaderFunc was
// given no StoreFunc but Set was called anyway.
func NewUnsupportedStoreError(key interface{}) error {
	return errors.NewWithField(ErrCodeUnsupportedStore, msgUnsupportedStore, "key", key)
}

// NewTimeoutError reports that a waiter's per-call timeout elapsed before
// its result was ready. The underlying load or store is unaffected and
// may still complete for other callers.
func NewTimeoutError(key interface{}, timeout interface{}) error {
	return errors.NewWithContext(ErrCodeTimeout, msgTimeout, map[string]interface{}{
		"key":     key,
		"timeout": timeout,
	}).AsRetryable()
}

// NewPanicRecoveredError reports a panic recovered from inside a Loader
// call, so one misbehaving loader cannot crash every caller sharing the
// cache.
func NewPanicRecoveredError(operation string, key interface{}, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"key":         key,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// IsTimeout reports whether err is a cache-generated timeout error, as
// opposed to an error returned by the loader itself.
func IsTimeout(err error) bool {
	return errors.HasCode(err, ErrCodeTimeout)
}

// IsLoadError reports whether err originated from Loader.Load.
func IsLoadError(err error) bool {
	return errors.HasCode(err, ErrCodeLoadFailed)
}

// IsStoreError reports whether err originated from Loader.Store.
func IsStoreError(err error) bool {
	return errors.HasCode(err, ErrCodeStoreFailed)
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the stable error code from err, if any.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
