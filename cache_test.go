// cache_test.go: coordination tests for LoadingCache's state machine.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package kestrel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a deterministic TimeProvider; tests advance it explicitly
// instead of sleeping on the wall clock.
type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(1_000_000_000)
	return c
}

func (c *fakeClock) Now() int64 { return c.nanos.Load() }

func (c *fakeClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

// countingLoader counts Load/Store calls and delegates to injectable funcs.
type countingLoader[K comparable, V any] struct {
	loadFn  func(ctx context.Context, key K) (LoadResult[V], error)
	storeFn func(ctx context.Context, key K, value V) (LoadResult[V], error)

	loads  atomic.Int64
	stores atomic.Int64
}

func (l *countingLoader[K, V]) Load(ctx context.Context, key K) (LoadResult[V], error) {
	l.loads.Add(1)
	return l.loadFn(ctx, key)
}

func (l *countingLoader[K, V]) Store(ctx context.Context, key K, value V) (LoadResult[V], error) {
	l.stores.Add(1)
	if l.storeFn == nil {
		return LoadResult[V]{}, NewUnsupportedStoreError(key)
	}
	return l.storeFn(ctx, key, value)
}

func TestGet_SingleFlightColdLoad(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			<-release
			return LoadResult[string]{Timestamp: clock.Now(), Value: "v1"}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get(context.Background(), "key")
			results[i] = v
			errs[i] = err
		}(i)
	}

	// Let every goroutine reach the flight wait before unblocking the load.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loader.loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 Load call, got %d", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("waiter %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != "v1" {
			t.Fatalf("waiter %d: got %q, want v1", i, results[i])
		}
	}
}

func TestGet_WarmHitSkipsLoader(t *testing.T) {
	clock := newFakeClock()
	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			return LoadResult[string]{Timestamp: clock.Now(), Value: "v1"}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := cache.Get(context.Background(), "key"); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if got := loader.loads.Load(); got != 1 {
		t.Fatalf("expected 1 Load after cold Get, got %d", got)
	}

	clock.Advance(100 * time.Millisecond) // still Fresh
	if _, err := cache.Get(context.Background(), "key"); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if got := loader.loads.Load(); got != 1 {
		t.Fatalf("expected still 1 Load after warm hit, got %d", got)
	}
}

func TestGet_ErrorBroadcastToAllWaiters(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	wantErr := fmt.Errorf("boom")

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			<-release
			return LoadResult[string]{}, wantErr
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "key")
			errs[i] = err
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			t.Fatalf("waiter %d: expected an error, got nil", i)
		}
		if !IsLoadError(err) {
			t.Fatalf("waiter %d: expected a load error, got %v", i, err)
		}
	}
}

func TestGet_TimeoutWhenLoadOutlivesDeadline(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	defer close(release)

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			<-release
			return LoadResult[string]{Timestamp: clock.Now(), Value: "too-late"}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      50 * time.Millisecond,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	_, err = cache.Get(context.Background(), "key")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected IsTimeout(err) to be true, got %v", err)
	}
	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Fatalf("timeout fired at unexpected elapsed time: %v", elapsed)
	}
}

func TestSet_WinsOverInFlightLoad(t *testing.T) {
	clock := newFakeClock()
	loadStarted := make(chan struct{})
	releaseLoad := make(chan struct{})

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			close(loadStarted)
			<-releaseLoad
			return LoadResult[string]{Timestamp: clock.Now(), Value: "stale-load"}, nil
		},
		storeFn: func(ctx context.Context, key string, value string) (LoadResult[string], error) {
			return LoadResult[string]{Timestamp: clock.Now(), Value: value}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 5
	var wg sync.WaitGroup
	results := make([]string, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get(context.Background(), "key")
			if err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	<-loadStarted
	v, err := cache.Set(context.Background(), "key", "authoritative")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v != "authoritative" {
		t.Fatalf("Set returned %q, want authoritative", v)
	}

	close(releaseLoad)
	wg.Wait()

	for i, got := range results {
		if got != "authoritative" {
			t.Fatalf("waiter %d: got %q, want authoritative (load should have been discarded)", i, got)
		}
	}

	stats := cache.Stats()
	if stats.StoreWins != 1 {
		t.Fatalf("expected StoreWins == 1, got %d", stats.StoreWins)
	}
}

func TestSet_WinsOverInFlightLoadError(t *testing.T) {
	clock := newFakeClock()
	loadStarted := make(chan struct{})
	releaseLoad := make(chan struct{})

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			close(loadStarted)
			<-releaseLoad
			return LoadResult[string]{}, fmt.Errorf("load exploded")
		},
		storeFn: func(ctx context.Context, key string, value string) (LoadResult[string], error) {
			return LoadResult[string]{Timestamp: clock.Now(), Value: value}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type outcome struct {
		v   string
		err error
	}
	done := make(chan outcome)
	go func() {
		v, err := cache.Get(context.Background(), "key")
		done <- outcome{v, err}
	}()

	<-loadStarted
	if _, err := cache.Set(context.Background(), "key", "saved"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	close(releaseLoad)

	result := <-done
	if result.err != nil {
		t.Fatalf("Get returned error %v, want nil (store should have won over the failed load)", result.err)
	}
	if result.v != "saved" {
		t.Fatalf("Get returned %q, want saved", result.v)
	}
}

func TestGet_StaleTriggersBackgroundRefreshAndServesOldValue(t *testing.T) {
	clock := newFakeClock()
	var loadCount atomic.Int64
	refreshDone := make(chan struct{})

	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			n := loadCount.Add(1)
			if n == 2 {
				defer close(refreshDone)
			}
			return LoadResult[string]{Timestamp: clock.Now(), Value: fmt.Sprintf("v%d", n)}, nil
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  10 * time.Millisecond,
		SpoilTime:    time.Hour,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := cache.Get(context.Background(), "key")
	if err != nil || v != "v1" {
		t.Fatalf("cold Get: v=%q err=%v", v, err)
	}

	clock.Advance(20 * time.Millisecond) // now Stale relative to RefreshTime

	v, err = cache.Get(context.Background(), "key")
	if err != nil {
		t.Fatalf("stale Get: %v", err)
	}
	if v != "v1" {
		t.Fatalf("stale Get returned %q, want the old value v1 served immediately", v)
	}

	<-refreshDone
	if got := loader.loads.Load(); got != 2 {
		t.Fatalf("expected exactly 2 Load calls (cold + one refresh), got %d", got)
	}
}

func TestConfig_ValidateRejectsMissingLoader(t *testing.T) {
	var cfg Config[string, string]
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a nil CacheLoader")
	} else if GetErrorCode(err) != ErrCodeInvalidConfig {
		t.Fatalf("expected ErrCodeInvalidConfig, got %v", GetErrorCode(err))
	}
}

func TestConfig_ValidateRejectsInvertedTimes(t *testing.T) {
	cfg := Config[string, string]{
		CacheLoader: LoaderFunc[string, string]{
			LoadFunc: func(ctx context.Context, key string) (LoadResult[string], error) {
				return LoadResult[string]{}, nil
			},
		},
		RefreshTime: time.Minute,
		SpoilTime:   time.Second,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when RefreshTime > SpoilTime")
	} else if GetErrorCode(err) != ErrCodeInvalidConfig {
		t.Fatalf("expected ErrCodeInvalidConfig, got %v", GetErrorCode(err))
	}
}

func TestLoaderFunc_StoreDefaultsToUnsupported(t *testing.T) {
	lf := LoaderFunc[string, string]{
		LoadFunc: func(ctx context.Context, key string) (LoadResult[string], error) {
			return LoadResult[string]{Value: "x"}, nil
		},
	}
	_, err := lf.Store(context.Background(), "key", "v")
	if err == nil {
		t.Fatal("expected an unsupported-store error")
	}
	if GetErrorCode(err) != ErrCodeUnsupportedStore {
		t.Fatalf("expected ErrCodeUnsupportedStore, got %v", GetErrorCode(err))
	}
}

func TestPanicRecovery_LoadPanicBecomesError(t *testing.T) {
	clock := newFakeClock()
	loader := &countingLoader[string, string]{
		loadFn: func(ctx context.Context, key string) (LoadResult[string], error) {
			panic("loader exploded")
		},
	}

	cache, err := New(Config[string, string]{
		CacheLoader:  loader,
		RefreshTime:  time.Second,
		SpoilTime:    time.Second,
		Timeout:      time.Second,
		TimeProvider: clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = cache.Get(context.Background(), "key")
	if err == nil {
		t.Fatal("expected a panic-recovered error")
	}
	if GetErrorCode(err) != ErrCodePanicRecovered {
		t.Fatalf("expected ErrCodePanicRecovered, got %v", GetErrorCode(err))
	}
}

func TestStats_HitRatio(t *testing.T) {
	s := CacheStats{Hits: 8, StaleHits: 1, Loads: 1}
	if got := s.HitRatio(); got != 90 {
		t.Fatalf("HitRatio() = %v, want 90", got)
	}
	var zero CacheStats
	if got := zero.HitRatio(); got != 0 {
		t.Fatalf("HitRatio() on zero value = %v, want 0", got)
	}
}
