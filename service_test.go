package radar_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/clock"
	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/retry"
	"github.com/krisalay/package-radar/types"
)

//
// ================= HELPERS =================
//

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newRadar(t *testing.T, mutate ...func(*radar.Config)) (*radar.Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	cfg := radar.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := radar.New(cfg, radar.WithClock(clk))
	require.NoError(t, err)
	return r, clk
}

// counting returns a fetch that yields val and counts its calls.
func counting(val any, calls *atomic.Int32) types.FetchFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return val, nil
	}
}

//
// ================= RETRIEVE OR FETCH =================
//

func TestHitShortCircuitsFetch(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()
	var calls atomic.Int32

	v, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", counting("summary", &calls))
	require.NoError(t, err)
	assert.Equal(t, "summary", v)

	v, err = r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", counting("other", &calls))
	require.NoError(t, err)
	assert.Equal(t, "summary", v)
	assert.Equal(t, int32(1), calls.Load())

	m := r.Metrics()
	assert.Equal(t, uint64(2), m.TotalRequests)
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.InDelta(t, 0.5, m.HitRate, 1e-9)
}

func TestExpiredEntryIsRefetched(t *testing.T) {
	r, clk := newRadar(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := r.Cache.RetrieveOrFetch(ctx, types.Timeline, "vue", counting([]string{"3.0.0"}, &calls))
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	_, err = r.Cache.RetrieveOrFetch(ctx, types.Timeline, "vue", counting([]string{"3.0.0"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "fresh exactly at the TTL")

	clk.Advance(time.Millisecond)
	_, err = r.Cache.RetrieveOrFetch(ctx, types.Timeline, "vue", counting([]string{"3.1.0"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, uint64(1), r.Metrics().Expired)
}

func TestFailureIsNotCached(t *testing.T) {
	r, clk := newRadar(t)
	ctx := context.Background()
	calls := 0
	netErr := fetcherr.Network("npm summary react", errors.New("connection refused"))

	_, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", func(context.Context) (any, error) {
		calls++
		return nil, netErr
	})
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 7*time.Second, clk.Slept())
	assert.Equal(t, 0, r.Cache.Len(types.Dashboard))

	m := r.Metrics()
	assert.Equal(t, uint64(1), m.Errors)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, m.TotalRequests, m.Hits+m.Misses)

	v, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", func(context.Context) (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)

	m = r.Metrics()
	assert.Zero(t, m.Hits)
	assert.Equal(t, uint64(2), m.Misses)
	assert.Equal(t, uint64(2), m.TotalRequests)
	assert.Equal(t, 1, r.Cache.Len(types.Dashboard))
}

func TestNotFoundFailsWithoutRetry(t *testing.T) {
	r, clk := newRadar(t)
	calls := 0

	_, err := r.Cache.RetrieveOrFetch(context.Background(), types.Changelog, "react@0.0.1", func(context.Context) (any, error) {
		calls++
		return nil, fetcherr.FromStatus("github release", 404, nil)
	})
	require.Error(t, err)
	assert.False(t, fetcherr.IsRetryable(err))
	assert.Equal(t, 1, calls)
	assert.Zero(t, clk.Slept())
}

func TestPerCallRetryOptions(t *testing.T) {
	r, clk := newRadar(t)
	calls := 0

	_, err := r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "x", func(context.Context) (any, error) {
		calls++
		return nil, fetcherr.FromStatus("npm", 503, nil)
	}, radar.WithMaxRetries(1), radar.WithRetryDelay(100*time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, clk.Sleeps())

	calls = 0
	_, err = r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "x", func(context.Context) (any, error) {
		calls++
		return nil, fetcherr.FromStatus("npm", 503, nil)
	}, radar.WithRetryPolicy(retry.Policy{}))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestForceRefresh(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", counting("v1", &calls))
	v, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", counting("v2", &calls), radar.WithForceRefresh())
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int32(2), calls.Load())

	cached, ok := r.Cache.Peek(types.Dashboard, "react")
	require.True(t, ok)
	assert.Equal(t, "v2", cached)
	assert.Equal(t, uint64(2), r.Metrics().Misses)
}

func TestWithTTLOverride(t *testing.T) {
	r, clk := newRadar(t)
	_, err := r.Cache.RetrieveOrFetch(context.Background(), types.Changelog, "react@18.2.0",
		func(context.Context) (any, error) { return "notes", nil }, radar.WithTTL(time.Minute))
	require.NoError(t, err)

	left, ok := r.Cache.Remaining(types.Changelog, "react@18.2.0")
	require.True(t, ok)
	assert.Equal(t, time.Minute, left)

	clk.Advance(time.Minute + time.Millisecond)
	_, ok = r.Cache.Peek(types.Changelog, "react@18.2.0")
	assert.False(t, ok)
}

func TestConfiguredNamespaceTTL(t *testing.T) {
	r, _ := newRadar(t, func(c *radar.Config) { c.TTLs[types.Dashboard] = 30 * time.Second })
	_, err := r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "k",
		func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	left, ok := r.Cache.Remaining(types.Dashboard, "k")
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, left)
}

func TestNilValueIsNotStored(t *testing.T) {
	r, _ := newRadar(t)
	v, err := r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "empty",
		func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, r.Cache.Len(types.Dashboard))
}

func TestFetchNilSliceIsNotStored(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()
	calls := 0
	empty := func(context.Context) ([]string, error) {
		calls++
		return nil, nil
	}

	for range 2 {
		got, err := radar.Fetch(ctx, r.Cache, types.Timeline, "left-pad", empty)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, r.Cache.Len(types.Timeline))
	m := r.Metrics()
	assert.Zero(t, m.Hits)
	assert.Equal(t, uint64(2), m.Misses)
}

func TestProgrammerErrors(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()

	_, err := r.Cache.RetrieveOrFetch(ctx, "settings", "k", func(context.Context) (any, error) { return 1, nil })
	assert.ErrorIs(t, err, radar.ErrUnknownNamespace)

	_, err = r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "k", nil)
	assert.ErrorIs(t, err, radar.ErrNilFetch)

	assert.Zero(t, r.Metrics().TotalRequests)
}

func TestCancelledFetchStoresNothing(t *testing.T) {
	r, _ := newRadar(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", func(context.Context) (any, error) {
		cancel()
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.Cache.Len(types.Dashboard))
}

//
// ================= SINGLE FLIGHT =================
//

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	r, _ := newRadar(t)
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "summary", nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "react", fetch)
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	require.Eventually(t, func() bool { return r.Metrics().Misses == callers }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "summary", v)
	}
	m := r.Metrics()
	assert.Equal(t, uint64(callers), m.TotalRequests)
	assert.Equal(t, uint64(callers), m.Misses)
}

func TestJoinedCallerUsesLeaderTTL(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", func(context.Context) (any, error) {
			close(started)
			<-release
			return "summary", nil
		}, radar.WithTTL(time.Hour))
		assert.NoError(t, err)
	}()
	<-started

	joined := make(chan struct{})
	go func() {
		defer close(joined)
		v, err := r.Cache.RetrieveOrFetch(ctx, types.Dashboard, "react", func(context.Context) (any, error) {
			return "own", nil
		}, radar.WithTTL(time.Second))
		assert.NoError(t, err)
		assert.Equal(t, "summary", v)
	}()

	require.Eventually(t, func() bool { return r.Metrics().Misses == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done
	<-joined

	left, ok := r.Cache.Remaining(types.Dashboard, "react")
	require.True(t, ok)
	assert.Equal(t, time.Hour, left)
}

func TestSingleFlightDisabled(t *testing.T) {
	r, _ := newRadar(t, func(c *radar.Config) { c.SingleFlight = false })
	var calls atomic.Int32
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := r.Cache.RetrieveOrFetch(context.Background(), types.Timeline, "k", func(context.Context) (any, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return 1, nil
			}, radar.WithForceRefresh())
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestFollowerSurvivesLeaderCancellation(t *testing.T) {
	r, _ := newRadar(t)
	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	entered := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return "summary", nil
	}

	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.Cache.RetrieveOrFetch(leaderCtx, types.Dashboard, "react", fetch)
		leaderErr <- err
	}()
	<-entered

	followerVal := make(chan any, 1)
	go func() {
		v, err := r.Cache.RetrieveOrFetch(context.Background(), types.Dashboard, "react", fetch)
		assert.NoError(t, err)
		followerVal <- v
	}()

	require.Eventually(t, func() bool { return r.Metrics().Misses == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	assert.Equal(t, "summary", <-followerVal)
}

//
// ================= TYPED FETCH =================
//

type summary struct{ Name, Latest string }

func TestFetchTyped(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()

	got, err := radar.Fetch(ctx, r.Cache, types.Dashboard, "react", func(context.Context) (summary, error) {
		return summary{"react", "18.2.0"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, summary{"react", "18.2.0"}, got)

	again, err := radar.Fetch(ctx, r.Cache, types.Dashboard, "react", func(context.Context) (summary, error) {
		t.Fatal("fetch called on a hit")
		return summary{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFetchTypeMismatch(t *testing.T) {
	r, _ := newRadar(t)
	ctx := context.Background()

	_, err := radar.Fetch(ctx, r.Cache, types.Timeline, "react", func(context.Context) ([]string, error) {
		return []string{"18.2.0"}, nil
	})
	require.NoError(t, err)

	_, err = radar.Fetch(ctx, r.Cache, types.Timeline, "react", func(context.Context) (summary, error) {
		return summary{}, nil
	})
	assert.ErrorIs(t, err, radar.ErrTypeMismatch)
	assert.Equal(t, uint64(1), r.Metrics().Errors)
}

//
// ================= INVALIDATION & MAINTENANCE =================
//

func seed(t *testing.T, r *radar.Store, ns types.Namespace, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, err := r.Cache.RetrieveOrFetch(context.Background(), ns, k, func(context.Context) (any, error) { return k, nil })
		require.NoError(t, err)
	}
}

func TestInvalidateSweepsEveryNamespace(t *testing.T) {
	r, _ := newRadar(t)
	seed(t, r, types.Dashboard, "react", "vue")
	seed(t, r, types.Timeline, "react")

	assert.Equal(t, 2, r.Invalidate(types.Dashboard, "react"))
	assert.Equal(t, 0, r.Invalidate(types.Dashboard, "react"))
	assert.Equal(t, []string{"vue"}, r.Cache.Keys(types.Dashboard))
	assert.Equal(t, 0, r.Cache.Len(types.Timeline))
}

func TestInvalidatePattern(t *testing.T) {
	r, _ := newRadar(t)
	seed(t, r, types.Changelog, "react@18.2.0", "react@17.0.2", "react-dom@18.2.0")

	n, err := r.Cache.InvalidatePattern(`^react@`)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"react-dom@18.2.0"}, r.Cache.Keys(types.Changelog))

	_, err = r.Cache.InvalidatePattern(`(`)
	assert.Error(t, err)
}

func TestClearAllKeepsMetrics(t *testing.T) {
	r, _ := newRadar(t)
	seed(t, r, types.Dashboard, "a", "b")
	seed(t, r, types.Changelog, "a@1")

	r.ClearAll()
	for _, ns := range types.Namespaces() {
		assert.Equal(t, 0, r.Cache.Len(ns))
	}
	assert.Equal(t, uint64(3), r.Metrics().TotalRequests)

	r.ResetMetrics()
	assert.Zero(t, r.Metrics().TotalRequests)
}

func TestClearExpired(t *testing.T) {
	r, clk := newRadar(t)
	seed(t, r, types.Dashboard, "a")
	seed(t, r, types.Changelog, "a@1")

	clk.Advance(6 * time.Minute)
	assert.Equal(t, 1, r.ClearExpired())
	assert.Equal(t, 0, r.Cache.Len(types.Dashboard))
	assert.Equal(t, 1, r.Cache.Len(types.Changelog))
}

func TestJanitor(t *testing.T) {
	r, clk := newRadar(t)
	seed(t, r, types.Dashboard, "a", "b")
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Cache.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.Cache.Len(types.Dashboard) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestCapacityBound(t *testing.T) {
	r, _ := newRadar(t, func(c *radar.Config) { c.Capacity = 2 })
	seed(t, r, types.Dashboard, "a", "b", "c")

	assert.Equal(t, 2, r.Cache.Len(types.Dashboard))
	assert.Equal(t, uint64(1), r.Metrics().Evictions)
}

func TestSlidingExpiry(t *testing.T) {
	r, clk := newRadar(t, func(c *radar.Config) {
		c.SlidingExpiry = true
		c.MaxAge = 12 * time.Minute
	})
	seed(t, r, types.Dashboard, "a")

	for i := 0; i < 2; i++ {
		clk.Advance(4 * time.Minute)
		_, ok := r.Cache.Peek(types.Dashboard, "a")
		require.True(t, ok)
	}
	clk.Advance(4*time.Minute + time.Millisecond)
	_, ok := r.Cache.Peek(types.Dashboard, "a")
	assert.False(t, ok, "MaxAge caps the sliding lifetime")
}
