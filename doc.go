// Package kestrel provides an asynchronous, concurrency-safe loading cache.
//
// A kestrel.LoadingCache is a key/value store whose values are produced on
// demand by a caller-supplied Loader and, optionally, written back through
// the same Loader's Store method. It is built for callers that repeatedly
// request the same derived value (an expensive remote fetch, a slow
// computation) and need:
//
//   - A single shared in-flight load per key, even under heavy concurrent
//     demand (cache-stampede protection, singleflight-style).
//   - A short window during which a previous result is reused verbatim
//     (fresh), a longer window during which it is reused but refreshed in
//     the background (stale), and a point past which it must not be
//     returned at all (spoiled).
//   - A per-request timeout that fails an individual caller without
//     disturbing the in-flight load or any other waiter.
//   - A race between explicit Set calls and in-flight loads in which the
//     Set always wins: an authoritative write supersedes whatever a
//     concurrent load would have produced.
//
// # Design
//
//   - Coordination: each key owns one entry, guarded by its own mutex.
//     Entries are created lazily and live for the process lifetime; this
//     package does not evict, so it is not a general-purpose cache
//     replacement — pair it with a bounded cache if eviction by size is
//     required (the sqlstore Loader under loaders/ does not evict either).
//   - Freshness: RefreshTime and SpoilTime bound the age of a cached
//     LoadResult. Age is computed from the Loader-supplied timestamp using
//     the cache's TimeProvider, which defaults to a go-timecache-backed
//     clock for near-zero-overhead reads.
//   - Broadcast: a single in-flight operation (a load or a store) is
//     represented by a flight, whose done channel is closed exactly once
//     to wake every waiter with an identical result or error.
//   - Errors: go-errors-based, with distinct, stable codes for loader
//     errors, store errors, and cache-generated timeouts so callers can
//     tell them apart with errors.HasCode instead of type assertions.
//
// # Basic usage
//
//	c, err := kestrel.New(kestrel.Config[string, string]{
//	    CacheLoader: myLoader,
//	    RefreshTime: 100 * time.Millisecond,
//	    SpoilTime:   time.Second,
//	    Timeout:     200 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := c.Get(ctx, "key")
//
// # With an explicit write
//
//	v, err := c.Set(ctx, "key", "new-value")
//	// Any Get already in flight for "key" observes v, not the load it
//	// was waiting on.
package kestrel
