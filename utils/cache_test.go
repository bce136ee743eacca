package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryPageCacheRoundTrip(t *testing.T) {
	cache := NewMemoryPageCache(time.Minute)

	_, ok := cache.Get("index:page=1")
	require.False(t, ok)

	cache.Set("index:page=1", []byte(`{"code":0}`))
	got, ok := cache.Get("index:page=1")
	require.True(t, ok)
	require.Equal(t, []byte(`{"code":0}`), got)
}

func TestMemoryPageCacheExpiry(t *testing.T) {
	cache := NewMemoryPageCache(30 * time.Millisecond)

	cache.Set("index:page=1", []byte("stale"))
	_, ok := cache.Get("index:page=1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = cache.Get("index:page=1")
	require.False(t, ok, "entries lapse after the TTL")
}

func TestMemoryPageCacheDefaultTTL(t *testing.T) {
	cache := NewMemoryPageCache(0)
	require.Equal(t, 20*time.Second, cache.ttl)
}

func TestMemoryPageCacheClear(t *testing.T) {
	cache := NewMemoryPageCache(time.Minute)
	cache.Set("index:page=1", []byte("one"))
	cache.Set("index:page=2", []byte("two"))

	cache.Clear()

	_, ok := cache.Get("index:page=1")
	require.False(t, ok)
	_, ok = cache.Get("index:page=2")
	require.False(t, ok)
}

func TestMemoryPageCacheSetOverwrites(t *testing.T) {
	cache := NewMemoryPageCache(time.Minute)
	cache.Set("k", []byte("v1"))
	cache.Set("k", []byte("v2"))

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v2"), got)
}
