package api

import (
	"context"
	"regexp"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/metrics"
	"github.com/krisalay/package-radar/navigation"
	"github.com/krisalay/package-radar/types"
)

/*
CacheService is the narrow contract UI and operator collaborators use to reach
the radar cache. Storage, expiry, retries and coalescing are hidden behind it.
*/
type CacheService interface {

	/*
		RetrieveOrFetch returns the value cached under (ns, key).

		BEHAVIOR:
		---------
		1. Fresh entry present (and no force refresh):
		   - Return it immediately (hit), fetch is never called

		2. Entry absent, stale, or force refresh requested:
		   - Call fetch with retry and exponential backoff
		   - Store the result with the namespace TTL
		   - Return it (miss)

		3. Fetch fails (non-retryable, or retries exhausted):
		   - Return the failure, cache nothing
	*/
	RetrieveOrFetch(ctx context.Context, ns types.Namespace, key string, fetch types.FetchFunc, opts ...radar.FetchOption) (any, error)

	/*
		Invalidate removes key from every namespace, starting with ns.
		Removing a missing key is safe. Returns the number of removed entries.
	*/
	Invalidate(ns types.Namespace, key string) int

	// InvalidateByPattern removes every key, in every namespace, matched by re.
	InvalidateByPattern(re *regexp.Regexp) int

	// InvalidatePattern compiles expr first; bad patterns are an error.
	InvalidatePattern(expr string) (int, error)

	// ClearAll drops every entry. Counters are kept.
	ClearAll()

	// ClearExpired drops stale entries now instead of waiting for reads.
	ClearExpired() int

	/*
		Metrics returns the accumulated counters.

		hits + misses == totalRequests, and hitRate == hits / totalRequests
		(0 before the first request). Counters only move back on ResetMetrics.
	*/
	Metrics() metrics.Snapshot

	// ResetMetrics zeroes the counters.
	ResetMetrics()

	// Len reports how many entries ns currently holds.
	Len(ns types.Namespace) int
}

/*
Navigator is the contract screens use to move between views.

Forward transitions never block: any view can jump to any other. Back undoes
exactly one step and floors at the dashboard.
*/
type Navigator interface {
	ToDashboard()

	// ToTimeline fails with navigation.ErrMissingPackage on a nil package
	// and leaves the state unchanged.
	ToTimeline(pkg *navigation.PackageRef) error

	// ToChangelog fails with ErrMissingPackage or ErrMissingVersion and leaves
	// the state unchanged.
	ToChangelog(pkg *navigation.PackageRef, version *navigation.VersionRef) error

	Back()

	// State returns a consistent snapshot of view, selections and history.
	State() navigation.State
}

var (
	_ CacheService = (*radar.CacheService)(nil)
	_ Navigator    = (*navigation.Machine)(nil)
)
