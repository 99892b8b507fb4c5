package eviction

import (
	"fmt"
	"strings"
)

/*
This file defines how a namespace decides what to drop when it reaches its
configured capacity. Capacity is optional: a namespace without a bound never
consults its policy.
*/

/*
Policy is the bookkeeping contract every eviction algorithm implements.
The partition calls it with its lock held, so implementations are not
synchronised themselves.
*/
type Policy interface {

	// Touch records a read of key. LRU and LFU care; FIFO ignores it.
	Touch(key string)

	// Track records that key was stored. Re-tracking a known key is a no-op
	// for insertion order but counts as a use.
	Track(key string)

	// Forget drops all bookkeeping for key (explicit delete or expiry).
	Forget(key string)

	// Victim picks the key to drop and forgets it.
	// ok is false when nothing is tracked.
	Victim() (key string, ok bool)

	// Len returns how many keys are tracked.
	Len() int
}

// PolicyType names a supported eviction strategy.
type PolicyType string

const (
	// LRU drops the key that was read or written least recently.
	LRU PolicyType = "lru"

	// LFU drops the key with the fewest reads. Ties go to the oldest use.
	LFU PolicyType = "lfu"

	// FIFO drops the key that was inserted first, regardless of reads.
	FIFO PolicyType = "fifo"
)

// ParsePolicyType converts a config value into a PolicyType.
// The empty string selects LRU.
func ParsePolicyType(s string) (PolicyType, error) {
	switch t := PolicyType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return LRU, nil
	case LRU, LFU, FIFO:
		return t, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q (want lru, lfu or fifo)", s)
	}
}

// New creates an empty policy of the given type.
func New(t PolicyType) (Policy, error) {
	switch t {
	case LRU, "":
		return newLRU(), nil
	case LFU:
		return newLFU(), nil
	case FIFO:
		return newFIFO(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}
