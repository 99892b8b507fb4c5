// Package radar is the in-process core of the package-version dashboard: a
// namespaced TTL cache with retry-with-backoff in front of the registry
// clients, and the navigation state machine the screens are driven by.
//
// One Store is built per session by the composition root and handed to its
// collaborators; there is no package-level instance.
package radar

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/krisalay/package-radar/clock"
	"github.com/krisalay/package-radar/engine"
	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/expiration"
	"github.com/krisalay/package-radar/metrics"
	"github.com/krisalay/package-radar/navigation"
	"github.com/krisalay/package-radar/retry"
	"github.com/krisalay/package-radar/store"
	"github.com/krisalay/package-radar/types"
)

// Config is the tunable part of a Store.
type Config struct {
	// TTLs per namespace. Missing or non-positive entries use the defaults
	// (5m dashboard, 10m timeline, 15m changelog).
	TTLs engine.TTLs

	// Retry is the default policy for fetches.
	Retry retry.Policy

	// SingleFlight coalesces concurrent misses for the same key.
	SingleFlight bool

	// Capacity bounds each namespace; 0 means unbounded.
	Capacity int

	// Eviction picks victims when a bounded namespace is full.
	Eviction eviction.PolicyType

	// SlidingExpiry makes reads extend an entry's lifetime. MaxAge caps the
	// total lifetime of a sliding entry; 0 means no cap.
	SlidingExpiry bool
	MaxAge        time.Duration
}

// DefaultConfig returns the default TTLs, 3 retries from 1s, single-flight on,
// unbounded namespaces and fixed TTLs.
func DefaultConfig() Config {
	return Config{
		TTLs:         engine.DefaultTTLs(),
		Retry:        retry.DefaultPolicy(),
		SingleFlight: true,
		Eviction:     eviction.LRU,
	}
}

// Store is the session's radar: the cache service and the navigation machine.
type Store struct {
	Cache      *CacheService
	Navigation *navigation.Machine
}

// Option injects collaborators into New.
type Option func(*buildOptions)

type buildOptions struct {
	clock  clock.Clock
	logger zerolog.Logger
}

// WithClock sets the clock used for expiry and backoff.
func WithClock(c clock.Clock) Option {
	return func(o *buildOptions) { o.clock = c }
}

// WithLogger sets the logger used when a request context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// New builds a Store from cfg.
func New(cfg Config, opts ...Option) (*Store, error) {
	o := buildOptions{clock: clock.Real{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	counters := &metrics.Counters{}
	executor := retry.NewExecutor(
		retry.WithClock(o.clock),
		retry.WithLogger(o.logger),
	)
	eng := engine.NewCacheEngine(cfg.TTLs, executor, cfg.Retry, counters, o.logger)

	var exp expiration.Strategy = expiration.FixedTTL{}
	if cfg.SlidingExpiry {
		exp = &expiration.ExpireAfterAccess{MaxAge: cfg.MaxAge}
	}

	st, err := store.New(
		store.WithClock(o.clock),
		store.WithExpiration(exp),
		store.WithMetrics(counters),
		store.WithDefaultTTL(eng.DefaultTTL),
		store.WithCapacity(cfg.Capacity, cfg.Eviction),
	)
	if err != nil {
		return nil, err
	}

	return &Store{
		Cache:      NewCacheService(st, eng, counters, cfg.SingleFlight),
		Navigation: navigation.NewMachine(),
	}, nil
}

// ClearAll drops every cached entry.
func (s *Store) ClearAll() { s.Cache.ClearAll() }

// ClearExpired drops every stale entry.
func (s *Store) ClearExpired() int { return s.Cache.ClearExpired() }

// Metrics returns the cache counters.
func (s *Store) Metrics() metrics.Snapshot { return s.Cache.Metrics() }

// ResetMetrics zeroes the cache counters.
func (s *Store) ResetMetrics() { s.Cache.ResetMetrics() }

// Invalidate removes key from every namespace, starting with ns.
func (s *Store) Invalidate(ns types.Namespace, key string) int {
	return s.Cache.Invalidate(ns, key)
}
