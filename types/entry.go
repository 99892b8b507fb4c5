package types

import "time"

// CacheEntry is one cached value inside a namespace.
// Timestamps are mutated under the owning partition's lock.
type CacheEntry struct {
	Namespace      Namespace
	Key            string
	Value          any
	StoredAt       time.Time
	LastAccessedAt time.Time
	TTL            time.Duration // always > 0 once stored
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// ExpiresAt is the last instant at which the entry is still considered fresh
// under a fixed TTL.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}
