// Package store is the namespaced TTL map under the radar cache. It knows
// nothing about fetching or retries: absence is always (nil, false), never an
// error.
package store

import (
	"time"

	"github.com/krisalay/package-radar/clock"
	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/expiration"
	"github.com/krisalay/package-radar/shard"
	"github.com/krisalay/package-radar/types"
)

// Store holds one shard per namespace.
type Store struct {
	clock      clock.Clock
	expiration expiration.Strategy
	metrics    types.Metrics
	defaultTTL func(types.Namespace) time.Duration
	shards     map[types.Namespace]*shard.Shard
}

// Option configures a Store.
type Option func(*options)

type options struct {
	clock      clock.Clock
	expiration expiration.Strategy
	metrics    types.Metrics
	defaultTTL func(types.Namespace) time.Duration
	capacity   int
	policy     eviction.PolicyType
}

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithExpiration sets the expiration strategy. Defaults to FixedTTL.
func WithExpiration(s expiration.Strategy) Option {
	return func(o *options) { o.expiration = s }
}

// WithMetrics sets the sink for Expire and Eviction events.
func WithMetrics(m types.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDefaultTTL sets the TTL used when Set receives a non-positive ttl.
// Defaults to Namespace.DefaultTTL.
func WithDefaultTTL(f func(types.Namespace) time.Duration) Option {
	return func(o *options) { o.defaultTTL = f }
}

// WithCapacity bounds every namespace to n entries, evicting with policy.
// n <= 0 leaves the namespaces unbounded.
func WithCapacity(n int, policy eviction.PolicyType) Option {
	return func(o *options) {
		o.capacity = n
		o.policy = policy
	}
}

// New creates an empty store with a shard for every namespace.
func New(opts ...Option) (*Store, error) {
	o := options{
		clock:      clock.Real{},
		expiration: expiration.FixedTTL{},
		metrics:    types.NoopMetrics{},
		defaultTTL: types.Namespace.DefaultTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		clock:      o.clock,
		expiration: o.expiration,
		metrics:    o.metrics,
		defaultTTL: o.defaultTTL,
		shards:     make(map[types.Namespace]*shard.Shard, len(types.Namespaces())),
	}
	for _, ns := range types.Namespaces() {
		var ev eviction.Policy
		if o.capacity > 0 {
			p, err := eviction.New(o.policy)
			if err != nil {
				return nil, err
			}
			ev = p
		}
		s.shards[ns] = shard.New(ns, o.capacity, ev)
	}
	return s, nil
}

/*
Set stores value under (ns, key) for ttl, replacing any previous entry.
A non-positive ttl falls back to the namespace default so a stored entry
always has ttl > 0. Unknown namespaces are ignored.
*/
func (s *Store) Set(ns types.Namespace, key string, value any, ttl time.Duration) {
	sh, ok := s.shards[ns]
	if !ok {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL(ns)
	}

	ent := &types.CacheEntry{
		Namespace: ns,
		Key:       key,
		Value:     value,
		TTL:       ttl,
	}

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	s.expiration.OnWrite(ent, s.clock.Now())
	for range sh.Insert(ent) {
		s.metrics.Eviction()
	}
}

/*
Get returns the value stored under (ns, key).

If the entry is stale it is removed as a side effect and Get reports absence,
even though the entry was present a moment before. The check and the removal
happen under the shard lock, so a concurrent Set cannot be lost between them.
*/
func (s *Store) Get(ns types.Namespace, key string) (any, bool) {
	sh, ok := s.shards[ns]
	if !ok {
		return nil, false
	}

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	ent, ok := sh.Lookup(key)
	if !ok {
		return nil, false
	}

	now := s.clock.Now()
	if s.expiration.IsExpired(ent, now) {
		sh.Remove(key)
		s.metrics.Expire()
		return nil, false
	}

	s.expiration.OnAccess(ent, now)
	sh.Touch(key)
	return ent.Value, true
}

// Remaining returns how long the entry under (ns, key) stays fresh if nobody
// reads it again. ok is false when the key is absent or already stale.
func (s *Store) Remaining(ns types.Namespace, key string) (time.Duration, bool) {
	sh, ok := s.shards[ns]
	if !ok {
		return 0, false
	}

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	ent, ok := sh.Lookup(key)
	if !ok {
		return 0, false
	}
	now := s.clock.Now()
	if s.expiration.IsExpired(ent, now) {
		return 0, false
	}
	return s.expiration.Deadline(ent).Sub(now), true
}

// Delete removes (ns, key) and reports whether it was present.
func (s *Store) Delete(ns types.Namespace, key string) bool {
	sh, ok := s.shards[ns]
	if !ok {
		return false
	}
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	return sh.Remove(key)
}

// DeleteMatching removes every key of ns for which match returns true and
// returns how many were removed.
func (s *Store) DeleteMatching(ns types.Namespace, match func(key string) bool) int {
	sh, ok := s.shards[ns]
	if !ok {
		return 0
	}
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	return len(sh.RemoveIf(func(ent *types.CacheEntry) bool {
		return match(ent.Key)
	}))
}

// Clear drops every entry of ns.
func (s *Store) Clear(ns types.Namespace) {
	sh, ok := s.shards[ns]
	if !ok {
		return
	}
	sh.Mu.Lock()
	sh.Reset()
	sh.Mu.Unlock()
}

// ClearAll drops every entry of every namespace.
func (s *Store) ClearAll() {
	for _, ns := range types.Namespaces() {
		s.Clear(ns)
	}
}

/*
ClearExpired walks every namespace and drops stale entries. It is never
scheduled by the store itself; hosts that want memory bounded independently of
read traffic call it (or run a janitor) on their own schedule.
*/
func (s *Store) ClearExpired() int {
	removed := 0
	for _, ns := range types.Namespaces() {
		sh := s.shards[ns]
		sh.Mu.Lock()
		now := s.clock.Now()
		n := len(sh.RemoveIf(func(ent *types.CacheEntry) bool {
			return s.expiration.IsExpired(ent, now)
		}))
		sh.Mu.Unlock()

		for i := 0; i < n; i++ {
			s.metrics.Expire()
		}
		removed += n
	}
	return removed
}

// Len returns the number of entries held for ns, including stale entries not
// yet observed by a read.
func (s *Store) Len(ns types.Namespace) int {
	sh, ok := s.shards[ns]
	if !ok {
		return 0
	}
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	return sh.Len()
}

// Keys returns the keys held for ns in sorted order.
func (s *Store) Keys(ns types.Namespace) []string {
	sh, ok := s.shards[ns]
	if !ok {
		return nil
	}
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	return sh.Keys()
}
