package shard

import (
	"sort"
	"sync"

	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/types"
)

/*
A Shard is the storage for one cache namespace. Namespaces are independent:
each shard has its own map, its own lock and (optionally) its own eviction
bookkeeping, so a burst of changelog writes never contends with dashboard
reads.

Reads can mutate a shard (lazy expiry removes stale entries), so there is a
single mutex rather than a read/write split.
*/
type Shard struct {
	Namespace types.Namespace

	// Mu guards entries and eviction. It is held only around map access,
	// never across a fetch or a backoff sleep. All methods below expect the
	// caller to hold it.
	Mu sync.Mutex

	entries map[string]*types.CacheEntry

	// eviction is nil when the shard is unbounded.
	eviction eviction.Policy
	capacity int
}

// New creates an empty shard. capacity <= 0 (or a nil policy) means unbounded.
func New(ns types.Namespace, capacity int, ev eviction.Policy) *Shard {
	s := &Shard{
		Namespace: ns,
		entries:   make(map[string]*types.CacheEntry),
	}
	if capacity > 0 && ev != nil {
		s.capacity = capacity
		s.eviction = ev
	}
	return s
}

// Lookup returns the entry for key without any expiry check.
func (s *Shard) Lookup(key string) (*types.CacheEntry, bool) {
	ent, ok := s.entries[key]
	return ent, ok
}

// Touch tells the eviction policy that key was read.
func (s *Shard) Touch(key string) {
	if s.eviction != nil {
		s.eviction.Touch(key)
	}
}

/*
Insert stores ent, replacing any entry with the same key. When the shard is
bounded and full, victims chosen by the eviction policy are dropped first.
It returns the evicted keys.
*/
func (s *Shard) Insert(ent *types.CacheEntry) []string {
	var evicted []string
	if _, exists := s.entries[ent.Key]; !exists && s.eviction != nil {
		for len(s.entries) >= s.capacity {
			victim, ok := s.eviction.Victim()
			if !ok {
				break
			}
			delete(s.entries, victim)
			evicted = append(evicted, victim)
		}
	}
	s.entries[ent.Key] = ent
	if s.eviction != nil {
		s.eviction.Track(ent.Key)
	}
	return evicted
}

// Remove deletes key and reports whether it was present.
func (s *Shard) Remove(key string) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	if s.eviction != nil {
		s.eviction.Forget(key)
	}
	return true
}

// Keys returns the stored keys in sorted order.
func (s *Shard) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemoveIf deletes every entry for which match returns true and returns
// the removed keys.
func (s *Shard) RemoveIf(match func(*types.CacheEntry) bool) []string {
	var removed []string
	for k, ent := range s.entries {
		if match(ent) {
			delete(s.entries, k)
			if s.eviction != nil {
				s.eviction.Forget(k)
			}
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}

// Len returns the number of stored entries, fresh or stale.
func (s *Shard) Len() int { return len(s.entries) }

// Reset drops every entry.
func (s *Shard) Reset() {
	for k := range s.entries {
		if s.eviction != nil {
			s.eviction.Forget(k)
		}
	}
	s.entries = make(map[string]*types.CacheEntry)
}
