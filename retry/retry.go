// Package retry runs an operation with exponential backoff. It knows nothing
// about caching: it decorates any fallible operation.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/krisalay/package-radar/clock"
	"github.com/krisalay/package-radar/fetcherr"
)

// Policy bounds the retries of one Execute call.
type Policy struct {
	// MaxRetries is how many times a retryable failure is retried.
	// The operation runs at most MaxRetries+1 times.
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the wait before the first retry; each later wait doubles.
	BaseDelay time.Duration `yaml:"base_delay"`
}

// DefaultPolicy waits 1s, 2s and 4s before the second, third and fourth attempt.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second}
}

// MaxDelay caps a single backoff wait.
const MaxDelay = time.Hour

// Delay returns the wait after the given failed attempt (counted from 0),
// never more than MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if p.BaseDelay >= MaxDelay || attempt >= 63 || p.BaseDelay > MaxDelay>>attempt {
		return MaxDelay
	}
	return p.BaseDelay << attempt
}

// Operation is the unit of work being retried.
type Operation func(ctx context.Context) (any, error)

// Executor runs operations under a Policy.
type Executor struct {
	clock     clock.Clock
	retryable func(error) bool
	logger    zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock used for backoff sleeps.
func WithClock(c clock.Clock) Option {
	return func(x *Executor) { x.clock = c }
}

// WithClassifier replaces fetcherr.IsRetryable.
func WithClassifier(f func(error) bool) Option {
	return func(x *Executor) { x.retryable = f }
}

// WithLogger sets the fallback logger used when ctx carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// NewExecutor creates an Executor with the wall clock and fetcherr.IsRetryable.
func NewExecutor(opts ...Option) *Executor {
	x := &Executor{
		clock:     clock.Real{},
		retryable: fetcherr.IsRetryable,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

/*
Execute runs op until it succeeds, fails with a non-retryable error, or the
policy's retries are used up.

BEHAVIOR:
---------
  - success                          → value returned immediately
  - non-retryable failure            → returned immediately, no sleep
  - retryable failure, retries left  → sleep BaseDelay * 2^attempt, try again
  - retryable failure, none left     → the last error is returned
  - ctx done during a sleep          → ctx error wrapped with the last failure

No lock is held and nothing is cached here; the caller decides what to do
with the result.
*/
func (x *Executor) Execute(ctx context.Context, op Operation, p Policy) (any, error) {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	log := x.log(ctx)

	for attempt := 0; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		if !x.retryable(err) {
			log.Debug().Err(err).Int("attempt", attempt+1).Msg("non-retryable failure")
			return nil, err
		}
		if attempt >= p.MaxRetries {
			log.Warn().Err(err).Int("attempts", attempt+1).Msg("retries exhausted")
			return nil, err
		}

		delay := p.Delay(attempt)
		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("retryable failure, backing off")

		if serr := x.clock.Sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("%w (last failure: %w)", serr, err)
		}
	}
}

// Do is the typed form of Execute.
func Do[T any](ctx context.Context, x *Executor, op func(context.Context) (T, error), p Policy) (T, error) {
	val, err := x.Execute(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, p)
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := val.(T)
	return v, nil
}

func (x *Executor) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &x.logger
}
