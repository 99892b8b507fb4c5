// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/package-radar/types"
)

/*
Strategy is the interface that all expiration rules must follow. The store does
not hard-code what "stale" means; it asks the strategy on every read and on
every compaction pass.

All methods are called with the owning partition locked.
*/
type Strategy interface {

	// IsExpired checks if the entry is stale at now.
	IsExpired(*types.CacheEntry, time.Time) bool

	// OnAccess is called whenever a fresh entry is returned to a caller.
	OnAccess(*types.CacheEntry, time.Time)

	// OnWrite is called whenever an entry is stored or replaced.
	OnWrite(*types.CacheEntry, time.Time)

	// Deadline is the last instant at which the entry is still fresh.
	Deadline(*types.CacheEntry) time.Time
}

/*
FixedTTL expires an entry once more than its TTL has passed since it was stored.
Reads never extend the lifetime.

An entry stored at t with TTL d is fresh at t+d and stale at t+d+1ns.
*/
type FixedTTL struct{}

func (FixedTTL) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	return now.Sub(ent.StoredAt) > ent.TTL
}

func (FixedTTL) Deadline(ent *types.CacheEntry) time.Time {
	return ent.ExpiresAt()
}

func (FixedTTL) OnAccess(ent *types.CacheEntry, now time.Time) {
	ent.LastAccessedAt = now
}

func (FixedTTL) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.StoredAt = now
	ent.LastAccessedAt = now
}
