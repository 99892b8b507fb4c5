package expiration

import (
	"time"

	"github.com/krisalay/package-radar/types"
)

/*
ExpireAfterAccess implements "sliding TTL". Every read pushes the deadline
forward by the entry's TTL: as long as the dashboard keeps showing a package,
its summary stays cached. If nobody reads it for a full TTL, it expires.

It is opt-in (config key sliding_expiry); the default is FixedTTL.
*/
type ExpireAfterAccess struct {

	// MaxAge caps the total lifetime regardless of reads. Zero means no cap.
	MaxAge time.Duration
}

// IsExpired checks whether the entry went unread for longer than its TTL,
// or outlived MaxAge.
func (e *ExpireAfterAccess) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	if e.MaxAge > 0 && now.Sub(ent.StoredAt) > e.MaxAge {
		return true
	}
	return now.Sub(ent.LastAccessedAt) > ent.TTL
}

// Deadline is TTL after the last read, capped by MaxAge.
func (e *ExpireAfterAccess) Deadline(ent *types.CacheEntry) time.Time {
	d := ent.LastAccessedAt.Add(ent.TTL)
	if e.MaxAge > 0 {
		if limit := ent.StoredAt.Add(e.MaxAge); limit.Before(d) {
			return limit
		}
	}
	return d
}

// OnAccess records the read; this is what slides the deadline.
func (e *ExpireAfterAccess) OnAccess(ent *types.CacheEntry, now time.Time) {
	ent.LastAccessedAt = now
}

/*
OnWrite is called when the entry is first written or replaced.
A replaced entry starts a fresh lifetime.
*/
func (e *ExpireAfterAccess) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.StoredAt = now
	ent.LastAccessedAt = now
}
