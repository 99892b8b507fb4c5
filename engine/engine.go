package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/krisalay/package-radar/retry"
	"github.com/krisalay/package-radar/types"
)

/*
CacheEngine is the policy layer of the radar cache.
It decides the "rules", not the storage:

- How long each namespace keeps its entries
- How a miss is fetched (retry policy and backoff)
- Where cache events are counted
- Where cache activity is logged

It does NOT:
- Store data
- Handle locking
- Decide what is stale (that is the store's expiration strategy)
*/
type CacheEngine struct {

	// TTLs holds the default time-to-live per namespace. Missing namespaces
	// fall back to Namespace.DefaultTTL.
	TTLs TTLs

	// Retry runs fetches with backoff.
	Retry *retry.Executor

	// RetryPolicy is used when a call does not bring its own.
	RetryPolicy retry.Policy

	// Metrics receives request, hit, miss and error events.
	Metrics types.Metrics

	// Logger is the fallback when the request context carries no logger.
	Logger zerolog.Logger
}

// TTLs maps a namespace to its default entry lifetime.
type TTLs map[types.Namespace]time.Duration

// DefaultTTLs returns 5m for summaries, 10m for timelines and 15m for changelogs.
func DefaultTTLs() TTLs {
	ttls := make(TTLs, len(types.Namespaces()))
	for _, ns := range types.Namespaces() {
		ttls[ns] = ns.DefaultTTL()
	}
	return ttls
}

/*
NewCacheEngine creates a CacheEngine.
*/
func NewCacheEngine(
	ttls TTLs,
	executor *retry.Executor,
	policy retry.Policy,
	metrics types.Metrics,
	logger zerolog.Logger,
) *CacheEngine {

	// Metrics is always non-nil so callers never check.
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if executor == nil {
		executor = retry.NewExecutor(retry.WithLogger(logger))
	}
	if ttls == nil {
		ttls = DefaultTTLs()
	}

	return &CacheEngine{
		TTLs:        ttls,
		Retry:       executor,
		RetryPolicy: policy,
		Metrics:     metrics,
		Logger:      logger,
	}
}

/*
TTL returns the lifetime for a new entry in ns.

An explicit positive override wins, then the configured namespace TTL, then
the built-in default.
*/
func (e *CacheEngine) TTL(ns types.Namespace, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if d, ok := e.TTLs[ns]; ok && d > 0 {
		return d
	}
	return ns.DefaultTTL()
}

// DefaultTTL has the signature the store expects for its fallback TTL.
func (e *CacheEngine) DefaultTTL(ns types.Namespace) time.Duration {
	return e.TTL(ns, 0)
}

/*
Load is used when the cache does NOT have the data. It runs the fetch through
the retry executor and logs the outcome. Nothing here touches the store.
*/
func (e *CacheEngine) Load(
	ctx context.Context,
	ns types.Namespace,
	key string,
	fetch types.FetchFunc,
	policy retry.Policy,
) (any, error) {
	log := e.Log(ctx).With().Str("namespace", ns.String()).Str("key", key).Logger()

	start := time.Now()
	val, err := e.Retry.Execute(ctx, retry.Operation(fetch), policy)
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("fetch failed")
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("fetched")
	return val, nil
}

// Log returns the context logger, or the engine logger when ctx has none.
func (e *CacheEngine) Log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.Logger
}
