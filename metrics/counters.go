// Package metrics accumulates the radar cache counters.
package metrics

import "sync"

/*
Counters is the in-process implementation of types.Metrics.

All counters move together under one mutex so a Snapshot is always
self-consistent (hits + misses == total requests at every observation).
Counters only grow; they are reset solely by an explicit Reset.
*/
type Counters struct {
	mu        sync.Mutex
	requests  uint64
	hits      uint64
	misses    uint64
	errors    uint64
	expired   uint64
	evictions uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Hits          uint64  `json:"hits" yaml:"hits"`
	Misses        uint64  `json:"misses" yaml:"misses"`
	Errors        uint64  `json:"errors" yaml:"errors"`
	TotalRequests uint64  `json:"totalRequests" yaml:"total_requests"`
	HitRate       float64 `json:"hitRate" yaml:"hit_rate"`
	Expired       uint64  `json:"expired" yaml:"expired"`
	Evictions     uint64  `json:"evictions" yaml:"evictions"`
}

func (c *Counters) Request()  { c.mu.Lock(); c.requests++; c.mu.Unlock() }
func (c *Counters) Hit()      { c.mu.Lock(); c.hits++; c.mu.Unlock() }
func (c *Counters) Miss()     { c.mu.Lock(); c.misses++; c.mu.Unlock() }
func (c *Counters) Error()    { c.mu.Lock(); c.errors++; c.mu.Unlock() }
func (c *Counters) Expire()   { c.mu.Lock(); c.expired++; c.mu.Unlock() }
func (c *Counters) Eviction() { c.mu.Lock(); c.evictions++; c.mu.Unlock() }

// Snapshot returns the current counters. HitRate is hits/requests, or 0 when
// there have been no requests.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Hits:          c.hits,
		Misses:        c.misses,
		Errors:        c.errors,
		TotalRequests: c.requests,
		Expired:       c.expired,
		Evictions:     c.evictions,
	}
	if c.requests > 0 {
		s.HitRate = float64(c.hits) / float64(c.requests)
	}
	return s
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests, c.hits, c.misses, c.errors, c.expired, c.evictions = 0, 0, 0, 0, 0, 0
}
