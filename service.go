package radar

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krisalay/package-radar/engine"
	"github.com/krisalay/package-radar/metrics"
	"github.com/krisalay/package-radar/store"
	"github.com/krisalay/package-radar/types"
)

// Errors returned by CacheService for programmer mistakes. Fetch failures are
// returned as produced by the fetch collaborator.
var (
	ErrUnknownNamespace = errors.New("unknown cache namespace")
	ErrNilFetch         = errors.New("fetch function is nil")
	ErrTypeMismatch     = errors.New("cached value has unexpected type")
)

/*
CacheService is the retrieve-or-fetch layer of the radar.
It connects:
- the namespaced store (what is cached, and whether it is still fresh)
- the engine (TTLs, retry policy, metrics, logging)
- single-flight coalescing of concurrent misses
*/
type CacheService struct {
	store    *store.Store
	engine   *engine.CacheEngine
	counters *metrics.Counters

	// singleFlight turns coalescing of concurrent misses for the same
	// (namespace, key) on or off. When off every caller fetches on its own.
	singleFlight bool
	sf           singleflight.Group
}

// NewCacheService wires a store and an engine. counters may be nil when the
// engine reports to some other Metrics sink; Metrics then returns zeros.
func NewCacheService(
	st *store.Store,
	eng *engine.CacheEngine,
	counters *metrics.Counters,
	singleFlight bool,
) *CacheService {
	if counters == nil {
		counters = &metrics.Counters{}
	}
	return &CacheService{
		store:        st,
		engine:       eng,
		counters:     counters,
		singleFlight: singleFlight,
	}
}

/*
RetrieveOrFetch returns the value cached under (ns, key), fetching it on a miss.

BEHAVIOR:
---------
 1. The call is counted as a request.
 2. Unless WithForceRefresh is given, a fresh cached value is returned as a hit.
    fetch is NOT called on a hit.
 3. Otherwise the call is counted as a miss and fetch runs through the retry
    executor (WithRetryPolicy or the engine default).
 4. On success the value is stored with the namespace TTL (or WithTTL) and
    returned. A nil value is returned but not stored.
 5. On failure the call is counted as an error and the failure is returned.
    Nothing is cached for a failure.

Concurrent misses for the same key share one fetch when single-flight is on.
The shared fetch runs with the first caller's options: a caller that joins it
gets that caller's TTL and retry policy, not its own.
No lock is held while fetching or backing off. A fetch whose context was
cancelled never stores its result.
*/
func (c *CacheService) RetrieveOrFetch(
	ctx context.Context,
	ns types.Namespace,
	key string,
	fetch types.FetchFunc,
	opts ...FetchOption,
) (any, error) {
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if fetch == nil {
		return nil, ErrNilFetch
	}

	o := c.resolve(opts)
	m := c.engine.Metrics
	log := c.engine.Log(ctx).With().Str("namespace", ns.String()).Str("key", key).Logger()

	m.Request()

	if !o.forceRefresh {
		if val, ok := c.store.Get(ns, key); ok {
			m.Hit()
			log.Debug().Msg("cache hit")
			return val, nil
		}
	}

	m.Miss()
	log.Debug().Bool("force_refresh", o.forceRefresh).Msg("cache miss")

	val, err := c.load(ctx, ns, key, fetch, o)
	if err != nil {
		m.Error()
		return nil, err
	}
	return val, nil
}

// load fetches and stores, coalescing with any in-flight fetch of the same key.
func (c *CacheService) load(
	ctx context.Context,
	ns types.Namespace,
	key string,
	fetch types.FetchFunc,
	o fetchOptions,
) (any, error) {
	run := func() (any, error) {
		val, err := c.engine.Load(ctx, ns, key, fetch, o.policy)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if val != nil {
			c.store.Set(ns, key, val, c.engine.TTL(ns, o.ttl))
		}
		return val, nil
	}

	if !c.singleFlight {
		return run()
	}

	ch := c.sf.DoChan(flightKey(ns, key), run)
	select {
	case res := <-ch:
		// The shared fetch ran on the first caller's context. If that caller
		// went away, fetch again for this one rather than failing it.
		if res.Err != nil && res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
			return run()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the cached value without fetching or counting a request.
// A stale entry is still removed.
func (c *CacheService) Peek(ns types.Namespace, key string) (any, bool) {
	return c.store.Get(ns, key)
}

// Remaining returns how long (ns, key) stays fresh.
func (c *CacheService) Remaining(ns types.Namespace, key string) (time.Duration, bool) {
	return c.store.Remaining(ns, key)
}

/*
Invalidate removes key from ns and from every other namespace. Keys may have
been written under an older namespace assignment, so all of them are swept.
It returns how many entries were removed.
*/
func (c *CacheService) Invalidate(ns types.Namespace, key string) int {
	removed := 0
	if c.store.Delete(ns, key) {
		removed++
	}
	for _, other := range types.Namespaces() {
		if other != ns && c.store.Delete(other, key) {
			removed++
		}
	}
	c.engine.Logger.Debug().Str("namespace", ns.String()).Str("key", key).Int("removed", removed).Msg("invalidated")
	return removed
}

// InvalidateByPattern removes every key, in every namespace, matched by re.
func (c *CacheService) InvalidateByPattern(re *regexp.Regexp) int {
	removed := 0
	for _, ns := range types.Namespaces() {
		removed += c.store.DeleteMatching(ns, re.MatchString)
	}
	c.engine.Logger.Debug().Str("pattern", re.String()).Int("removed", removed).Msg("invalidated by pattern")
	return removed
}

// InvalidatePattern compiles expr and calls InvalidateByPattern.
func (c *CacheService) InvalidatePattern(expr string) (int, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid invalidation pattern: %w", err)
	}
	return c.InvalidateByPattern(re), nil
}

// ClearAll drops every cached entry. Metrics are kept.
func (c *CacheService) ClearAll() {
	c.store.ClearAll()
	c.engine.Logger.Info().Msg("cache cleared")
}

// ClearExpired drops every stale entry and returns how many were dropped.
func (c *CacheService) ClearExpired() int {
	return c.store.ClearExpired()
}

// Metrics returns a snapshot of the counters.
func (c *CacheService) Metrics() metrics.Snapshot {
	return c.counters.Snapshot()
}

// ResetMetrics zeroes the counters.
func (c *CacheService) ResetMetrics() {
	c.counters.Reset()
}

// Len returns how many entries ns holds, stale entries included.
func (c *CacheService) Len(ns types.Namespace) int {
	return c.store.Len(ns)
}

// Keys returns the keys held by ns.
func (c *CacheService) Keys(ns types.Namespace) []string {
	return c.store.Keys(ns)
}

func flightKey(ns types.Namespace, key string) string {
	return string(ns) + "\x00" + key
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
