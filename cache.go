// cache.go: LoadingCache coordination engine — the per-key state machine
// described in SPEC_FULL.md §4.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package kestrel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LoadingCache coordinates per-key loads and stores against a Loader. All
// methods are safe for concurrent use by multiple goroutines.
type LoadingCache[K comparable, V any] interface {
	// Get returns the value for key, loading it if necessary. Concurrent
	// Get calls on the same key observe exactly one Loader.Load while a
	// result is absent or spoiled; a fresh or stale result is returned
	// without touching the loader (a stale one also triggers a
	// background refresh). May fail with a timeout error (see IsTimeout)
	// or a loader error (see IsLoadError).
	Get(ctx context.Context, key K) (V, error)

	// Set stores value for key via Loader.Store. If a load is already in
	// flight for key, the store supersedes it: every waiter on that load
	// receives the store's result instead, and the load's own outcome is
	// discarded. May fail with a loader error (see IsStoreError).
	Set(ctx context.Context, key K, value V) (V, error)

	// Stats returns a snapshot of the cache's aggregate counters.
	Stats() CacheStats
}

// New constructs a LoadingCache from cfg. cfg is validated and normalized
// (see Config.Validate); an invalid configuration is reported with
// ErrCodeInvalidConfig.
func New[K comparable, V any](cfg Config[K, V]) (LoadingCache[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &loadingCache[K, V]{
		cfg:     cfg,
		entries: make(map[K]*entry[K, V]),
	}, nil
}

type loadingCache[K comparable, V any] struct {
	cfg Config[K, V]

	mu      sync.Mutex
	entries map[K]*entry[K, V]

	hits        atomic.Uint64
	staleHits   atomic.Uint64
	loads       atomic.Uint64
	loadErrors  atomic.Uint64
	stores      atomic.Uint64
	storeErrors atomic.Uint64
	storeWins   atomic.Uint64
	timeouts    atomic.Uint64
}

func (c *loadingCache[K, V]) entryFor(key K) *entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[K, V]{}
		c.entries[key] = e
	}
	return e
}

func (c *loadingCache[K, V]) now() int64 {
	return c.cfg.TimeProvider.Now()
}

func (c *loadingCache[K, V]) age(now int64, r *LoadResult[V]) time.Duration {
	return time.Duration(now - r.Timestamp)
}

// Get implements the state machine of SPEC_FULL.md §4.3: Fresh and Stale
// (and Refreshing) resolve without blocking on a flight; only Loading,
// Storing, and a cold/spoiled entry make the caller wait.
func (c *loadingCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	e := c.entryFor(key)
	now := c.now()

	e.mu.Lock()

	if f := e.flight; f != nil {
		if f.kind == opStore {
			// Storing: wait for the store regardless of any stale
			// result that might otherwise be servable.
			e.mu.Unlock()
			return c.wait(ctx, key, f)
		}
		// f.kind == opLoad.
		if e.result != nil && c.age(now, e.result) <= c.cfg.SpoilTime {
			// Refreshing: the result is not yet spoiled, serve it
			// without waiting on the background refresh.
			v := e.result.Value
			e.mu.Unlock()
			c.staleHits.Add(1)
			c.cfg.MetricsCollector.RecordStaleHit()
			return v, nil
		}
		// Loading: no usable result (or it spoiled while the refresh
		// was still running).
		e.mu.Unlock()
		return c.wait(ctx, key, f)
	}

	if e.result != nil {
		age := c.age(now, e.result)
		if age <= c.cfg.RefreshTime {
			v := e.result.Value
			e.mu.Unlock()
			c.hits.Add(1)
			c.cfg.MetricsCollector.RecordHit()
			return v, nil
		}
		if age <= c.cfg.SpoilTime {
			v := e.result.Value
			c.startLoad(e, key)
			e.mu.Unlock()
			c.staleHits.Add(1)
			c.cfg.MetricsCollector.RecordStaleHit()
			return v, nil
		}
		// Spoiled: fall through as if Empty.
	}

	f := c.startLoad(e, key)
	e.mu.Unlock()
	return c.wait(ctx, key, f)
}

// Set implements the "store wins" race of SPEC_FULL.md §4.3: if an entry
// already has a load in flight, Set upgrades that same flight in place
// so every waiter already attached to it observes the store's result
// instead of the load's.
func (c *loadingCache[K, V]) Set(ctx context.Context, key K, value V) (V, error) {
	e := c.entryFor(key)

	e.mu.Lock()
	var f *flight[V]
	if existing := e.flight; existing != nil && existing.kind == opLoad {
		existing.discarded = true
		existing.kind = opStore
		f = existing
		c.storeWins.Add(1)
		c.cfg.MetricsCollector.RecordStoreWins()
		c.cfg.Logger.Debug("kestrel: store superseded in-flight load", "key", key)
	} else {
		// No flight, or a concurrent Set is already storing: start a
		// fresh store op. Racing Sets are not coalesced (spec open
		// question (c)): each executes its own Store call, and
		// whichever completes last wins entry.result.
		f = newFlight[V](opStore)
		e.flight = f
	}
	e.mu.Unlock()

	start := c.now()
	res, err := c.callStore(ctx, key, value)
	c.cfg.MetricsCollector.RecordStore(c.now()-start, err)
	c.stores.Add(1)
	if err != nil {
		c.storeErrors.Add(1)
	}

	e.mu.Lock()
	if err == nil {
		installed := res
		e.result = &installed
	}
	if e.flight == f {
		e.flight = nil
	}
	e.mu.Unlock()

	f.complete(res.Value, err)
	return res.Value, err
}

func (c *loadingCache[K, V]) Stats() CacheStats {
	return CacheStats{
		Hits:        c.hits.Load(),
		StaleHits:   c.staleHits.Load(),
		Loads:       c.loads.Load(),
		LoadErrors:  c.loadErrors.Load(),
		Stores:      c.stores.Load(),
		StoreErrors: c.storeErrors.Load(),
		StoreWins:   c.storeWins.Load(),
		Timeouts:    c.timeouts.Load(),
	}
}

// startLoad installs a new opLoad flight on e and spawns the goroutine
// that runs it. Callers must hold e.mu.
func (c *loadingCache[K, V]) startLoad(e *entry[K, V], key K) *flight[V] {
	f := newFlight[V](opLoad)
	e.flight = f
	go c.runLoad(e, key, f)
	return f
}

// runLoad executes one Loader.Load call and, unless it has been
// superseded by a concurrent Set, installs the result and completes f.
// It runs detached from any caller's context: a waiter's timeout must
// not cancel work other callers (or a later caller) may still benefit
// from.
func (c *loadingCache[K, V]) runLoad(e *entry[K, V], key K, f *flight[V]) {
	ctx := context.WithoutCancel(context.Background())

	start := c.now()
	res, err := c.callLoad(ctx, key)
	c.cfg.MetricsCollector.RecordLoad(c.now()-start, err)
	c.loads.Add(1)
	if err != nil {
		c.loadErrors.Add(1)
	}

	e.mu.Lock()
	discarded := f.discarded
	if !discarded {
		if err == nil {
			installed := res
			e.result = &installed
		}
		if e.flight == f {
			e.flight = nil
		}
	}
	e.mu.Unlock()

	if discarded {
		// A Set already upgraded this flight; it owns completing it
		// with the store's outcome. Our result is discarded entirely,
		// per the store-wins rule.
		return
	}

	if err != nil {
		c.cfg.Logger.Warn("kestrel: load failed", "key", key, "error", err)
	}
	f.complete(res.Value, err)
}

// wait blocks the caller on f until it completes or the per-call timeout
// (bounded by both cfg.Timeout and ctx) elapses first.
func (c *loadingCache[K, V]) wait(ctx context.Context, key K, f *flight[V]) (V, error) {
	var zero V

	deadlineCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	select {
	case <-f.done:
		return f.value, f.err
	case <-deadlineCtx.Done():
		c.timeouts.Add(1)
		c.cfg.MetricsCollector.RecordTimeout()
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		c.cfg.Logger.Warn("kestrel: get timed out", "key", key, "timeout", c.cfg.Timeout)
		return zero, NewTimeoutError(key, c.cfg.Timeout)
	}
}

// callLoad invokes the configured Loader's Load method, recovering from
// a panic so one bad loader cannot take down every goroutine sharing the
// cache.
func (c *loadingCache[K, V]) callLoad(ctx context.Context, key K) (result LoadResult[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicRecoveredError("Load", key, r)
		}
	}()
	res, loadErr := c.cfg.CacheLoader.Load(ctx, key)
	if loadErr != nil {
		return LoadResult[V]{}, NewLoadError(key, loadErr)
	}
	return res, nil
}

// callStore invokes the configured Loader's Store method with the same
// panic-recovery guarantee as callLoad.
func (c *loadingCache[K, V]) callStore(ctx context.Context, key K, value V) (result LoadResult[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicRecoveredError("Store", key, r)
		}
	}()
	res, storeErr := c.cfg.CacheLoader.Store(ctx, key, value)
	if storeErr != nil {
		return LoadResult[V]{}, NewStoreError(key, storeErr)
	}
	return res, nil
}
