package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/package-radar/clock"
	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/expiration"
	"github.com/krisalay/package-radar/metrics"
	"github.com/krisalay/package-radar/types"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, opts ...Option) (*Store, *clock.Fake, *metrics.Counters) {
	t.Helper()
	clk := clock.NewFake(t0)
	m := &metrics.Counters{}
	s, err := New(append([]Option{WithClock(clk), WithMetrics(m)}, opts...)...)
	require.NoError(t, err)
	return s, clk, m
}

func TestSetGet(t *testing.T) {
	s, _, _ := newStore(t)

	s.Set(types.Dashboard, "react", "summary", time.Minute)
	v, ok := s.Get(types.Dashboard, "react")
	require.True(t, ok)
	assert.Equal(t, "summary", v)

	// namespaces are independent
	_, ok = s.Get(types.Timeline, "react")
	assert.False(t, ok)
}

func TestGetMissingIsAbsence(t *testing.T) {
	s, _, _ := newStore(t)
	v, ok := s.Get(types.Changelog, "nope")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestTTLBoundary(t *testing.T) {
	s, clk, m := newStore(t)
	s.Set(types.Dashboard, "k", 1, 5*time.Minute)

	clk.Advance(5*time.Minute - time.Millisecond)
	_, ok := s.Get(types.Dashboard, "k")
	assert.True(t, ok)

	clk.Set(t0.Add(5 * time.Minute))
	_, ok = s.Get(types.Dashboard, "k")
	assert.True(t, ok, "fresh exactly at the deadline")

	clk.Set(t0.Add(5*time.Minute + time.Millisecond))
	_, ok = s.Get(types.Dashboard, "k")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), m.Snapshot().Expired)
}

func TestStaleReadRemovesEntry(t *testing.T) {
	s, clk, _ := newStore(t)
	s.Set(types.Timeline, "vue", []string{"3.0.0"}, 0)

	clk.Advance(599999 * time.Millisecond)
	_, ok := s.Get(types.Timeline, "vue")
	assert.True(t, ok)

	clk.Set(t0.Add(600001 * time.Millisecond))
	assert.Equal(t, 1, s.Len(types.Timeline), "stale entries stay until observed")
	_, ok = s.Get(types.Timeline, "vue")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(types.Timeline))
}

func TestNonPositiveTTLUsesNamespaceDefault(t *testing.T) {
	s, _, _ := newStore(t)
	s.Set(types.Changelog, "react@18.2.0", "notes", -time.Second)

	left, ok := s.Remaining(types.Changelog, "react@18.2.0")
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, left)
}

func TestWithDefaultTTL(t *testing.T) {
	s, _, _ := newStore(t, WithDefaultTTL(func(types.Namespace) time.Duration { return time.Second }))
	s.Set(types.Dashboard, "a", 1, 0)

	left, ok := s.Remaining(types.Dashboard, "a")
	require.True(t, ok)
	assert.Equal(t, time.Second, left)
}

func TestSetReplacesAndRestartsLifetime(t *testing.T) {
	s, clk, _ := newStore(t)
	s.Set(types.Dashboard, "k", "old", time.Minute)
	clk.Advance(50 * time.Second)
	s.Set(types.Dashboard, "k", "new", time.Minute)
	clk.Advance(50 * time.Second)

	v, ok := s.Get(types.Dashboard, "k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestUnknownNamespaceIsIgnored(t *testing.T) {
	s, _, _ := newStore(t)
	s.Set("bogus", "k", 1, time.Minute)

	_, ok := s.Get("bogus", "k")
	assert.False(t, ok)
	assert.False(t, s.Delete("bogus", "k"))
	assert.Equal(t, 0, s.Len("bogus"))
	assert.Nil(t, s.Keys("bogus"))
}

func TestDeleteAndClear(t *testing.T) {
	s, _, _ := newStore(t)
	s.Set(types.Dashboard, "a", 1, time.Minute)
	s.Set(types.Dashboard, "b", 2, time.Minute)
	s.Set(types.Timeline, "a", 3, time.Minute)

	assert.True(t, s.Delete(types.Dashboard, "a"))
	assert.False(t, s.Delete(types.Dashboard, "a"))
	assert.Equal(t, []string{"b"}, s.Keys(types.Dashboard))

	s.Clear(types.Dashboard)
	assert.Equal(t, 0, s.Len(types.Dashboard))
	assert.Equal(t, 1, s.Len(types.Timeline))

	s.ClearAll()
	for _, ns := range types.Namespaces() {
		assert.Equal(t, 0, s.Len(ns))
	}
}

func TestDeleteMatching(t *testing.T) {
	s, _, _ := newStore(t)
	s.Set(types.Changelog, "react@1.0.0", 1, time.Minute)
	s.Set(types.Changelog, "react@2.0.0", 2, time.Minute)
	s.Set(types.Changelog, "preact@1.0.0", 3, time.Minute)

	n := s.DeleteMatching(types.Changelog, func(k string) bool { return len(k) > 5 && k[:6] == "react@" })
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"preact@1.0.0"}, s.Keys(types.Changelog))
}

func TestClearExpired(t *testing.T) {
	s, clk, m := newStore(t)
	s.Set(types.Dashboard, "short", 1, time.Minute)
	s.Set(types.Timeline, "short", 1, time.Minute)
	s.Set(types.Changelog, "long", 1, time.Hour)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, s.ClearExpired())
	assert.Equal(t, 0, s.Len(types.Dashboard))
	assert.Equal(t, 1, s.Len(types.Changelog))
	assert.Equal(t, uint64(2), m.Snapshot().Expired)

	assert.Equal(t, 0, s.ClearExpired())
}

func TestRemaining(t *testing.T) {
	s, clk, _ := newStore(t)
	s.Set(types.Dashboard, "k", 1, time.Minute)
	clk.Advance(20 * time.Second)

	left, ok := s.Remaining(types.Dashboard, "k")
	require.True(t, ok)
	assert.Equal(t, 40*time.Second, left)

	clk.Advance(time.Minute)
	_, ok = s.Remaining(types.Dashboard, "k")
	assert.False(t, ok)

	_, ok = s.Remaining(types.Dashboard, "missing")
	assert.False(t, ok)
}

func TestRemainingSliding(t *testing.T) {
	s, clk, _ := newStore(t, WithExpiration(&expiration.ExpireAfterAccess{}))
	s.Set(types.Dashboard, "k", 1, time.Minute)

	clk.Advance(50 * time.Second)
	_, ok := s.Get(types.Dashboard, "k")
	require.True(t, ok)

	clk.Advance(50 * time.Second)
	left, ok := s.Remaining(types.Dashboard, "k")
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, left)
}

func TestCapacityEvicts(t *testing.T) {
	s, _, m := newStore(t, WithCapacity(2, eviction.LRU))
	s.Set(types.Dashboard, "a", 1, time.Minute)
	s.Set(types.Dashboard, "b", 2, time.Minute)
	s.Get(types.Dashboard, "a")
	s.Set(types.Dashboard, "c", 3, time.Minute)

	assert.Equal(t, []string{"a", "c"}, s.Keys(types.Dashboard))
	assert.Equal(t, uint64(1), m.Snapshot().Evictions)
}

func TestCapacityRejectsUnknownPolicy(t *testing.T) {
	_, err := New(WithCapacity(2, "random"))
	assert.Error(t, err)
}

func TestSlidingExpiry(t *testing.T) {
	s, clk, _ := newStore(t, WithExpiration(&expiration.ExpireAfterAccess{}))
	s.Set(types.Dashboard, "k", 1, time.Minute)

	for i := 0; i < 5; i++ {
		clk.Advance(50 * time.Second)
		_, ok := s.Get(types.Dashboard, "k")
		require.True(t, ok)
	}
	clk.Advance(61 * time.Second)
	_, ok := s.Get(types.Dashboard, "k")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s, _, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%5))
			s.Set(types.Dashboard, key, i, time.Minute)
			s.Get(types.Dashboard, key)
			s.Delete(types.Timeline, key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, s.Len(types.Dashboard))
}
