package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/package-radar/eviction"
	"github.com/krisalay/package-radar/types"
)

func entry(key string) *types.CacheEntry {
	return &types.CacheEntry{Namespace: types.Dashboard, Key: key, Value: key}
}

func TestUnboundedShard(t *testing.T) {
	s := New(types.Dashboard, 0, nil)
	for _, k := range []string{"c", "a", "b"} {
		assert.Empty(t, s.Insert(entry(k)))
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())

	ent, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", ent.Value)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 2, s.Len())
}

func TestBoundedShardEvicts(t *testing.T) {
	ev, err := eviction.New(eviction.LRU)
	require.NoError(t, err)
	s := New(types.Timeline, 2, ev)

	s.Insert(entry("a"))
	s.Insert(entry("b"))
	s.Touch("a")

	evicted := s.Insert(entry("c"))
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"a", "c"}, s.Keys())

	// replacing an existing key never evicts
	assert.Empty(t, s.Insert(entry("a")))
	assert.Equal(t, 2, s.Len())
}

func TestRemoveIf(t *testing.T) {
	ev, _ := eviction.New(eviction.FIFO)
	s := New(types.Changelog, 10, ev)
	for _, k := range []string{"react@1", "react@2", "vue@3"} {
		s.Insert(entry(k))
	}

	removed := s.RemoveIf(func(e *types.CacheEntry) bool { return e.Key[0] == 'r' })
	assert.Equal(t, []string{"react@1", "react@2"}, removed)
	assert.Equal(t, []string{"vue@3"}, s.Keys())
	assert.Equal(t, 1, ev.Len())
}

func TestReset(t *testing.T) {
	ev, _ := eviction.New(eviction.LFU)
	s := New(types.Dashboard, 5, ev)
	s.Insert(entry("a"))
	s.Insert(entry("b"))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, ev.Len())
}
