package radar

import (
	"time"

	"github.com/krisalay/package-radar/retry"
)

// FetchOption tunes one RetrieveOrFetch call.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	ttl          time.Duration
	forceRefresh bool
	policy       retry.Policy
}

// WithTTL overrides the namespace TTL for the value stored by this call.
func WithTTL(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.ttl = d }
}

// WithForceRefresh skips the cache lookup and always fetches.
func WithForceRefresh() FetchOption {
	return func(o *fetchOptions) { o.forceRefresh = true }
}

// WithRetryPolicy replaces the retry policy for this call.
func WithRetryPolicy(p retry.Policy) FetchOption {
	return func(o *fetchOptions) { o.policy = p }
}

// WithMaxRetries overrides only the retry count.
func WithMaxRetries(n int) FetchOption {
	return func(o *fetchOptions) { o.policy.MaxRetries = n }
}

// WithRetryDelay overrides only the base backoff delay.
func WithRetryDelay(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.policy.BaseDelay = d }
}

func (c *CacheService) resolve(opts []FetchOption) fetchOptions {
	o := fetchOptions{policy: c.engine.RetryPolicy}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
