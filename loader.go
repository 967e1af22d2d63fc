// loader.go: the Loader contract, the cache's sole outbound dependency.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package kestrel

import "context"

// LoadResult is the value a Loader produces for a key, paired with the
// timestamp at which the producer considered it authoritative.
//
// Timestamp is in the same unit as the cache's TimeProvider (unix
// nanoseconds by default); age is always computed as now - Timestamp.
type LoadResult[V any] struct {
	Timestamp int64
	Value     V
}

// Loader is the external collaborator a LoadingCache delegates to. It is
// pure from the cache's point of view: the cache never inspects or
// transforms a loaded value, and never retries on its own.
//
// Both methods may take arbitrary time and may fail with any error; a
// Load is called at most once per coalescing window per key, and a Store
// is always executed for the caller that invoked LoadingCache.Set.
type Loader[K comparable, V any] interface {
	// Load produces a value for key. Implementations should respect ctx
	// cancellation where practical, though the cache itself detaches
	// background refreshes from any single caller's context.
	Load(ctx context.Context, key K) (LoadResult[V], error)

	// Store persists value for key and returns the result that should
	// become authoritative — normally {Timestamp: now, Value: value}.
	Store(ctx context.Context, key K, value V) (LoadResult[V], error)
}

// LoaderFunc adapts two plain functions to the Loader interface, for
// loaders that have no use for Store (e.g. read-through caches in front
// of an immutable data source).
type LoaderFunc[K comparable, V any] struct {
	LoadFunc  func(ctx context.Context, key K) (LoadResult[V], error)
	StoreFunc func(ctx context.Context, key K, value V) (LoadResult[V], error)
}

func (f LoaderFunc[K, V]) Load(ctx context.Context, key K) (LoadResult[V], error) {
	return f.LoadFunc(ctx, key)
}

func (f LoaderFunc[K, V]) Store(ctx context.Context, key K, value V) (LoadResult[V], error) {
	if f.StoreFunc == nil {
		return LoadResult[V]{}, NewUnsupportedStoreError(key)
	}
	return f.StoreFunc(ctx, key, value)
}
