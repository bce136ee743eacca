package utils

import (
	"context"
	"sync"
	"time"
)

// PageCache caches rendered feed pages. Only the global index feed is cached;
// entries expire after the configured TTL and Clear drops everything at once.
// Writers never invalidate entries on post creation: the staleness window is
// part of the contract.
type PageCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, body []byte)
	Clear()
}

const cacheKeyPrefix = "cache:feed:"

// RedisPageCache stores rendered pages in Redis with a server-side TTL.
type RedisPageCache struct {
	ttl time.Duration
}

// NewRedisPageCache builds a redis backed cache with the given TTL.
func NewRedisPageCache(ttl time.Duration) *RedisPageCache {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &RedisPageCache{ttl: ttl}
}

// Get returns cached bytes for a key.
func (c *RedisPageCache) Get(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if Sugar != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// Set stores bytes under the cache TTL.
func (c *RedisPageCache) Set(key string, body []byte) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, cacheKeyPrefix+key, body, c.ttl).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
	}
}

// Clear deletes every cached page using SCAN over the cache prefix.
func (c *RedisPageCache) Clear() {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, cacheKeyPrefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

// MemoryPageCache is an in-process PageCache with the same TTL semantics.
// It backs tests and redis-less deployments.
type MemoryPageCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryPageCache builds an in-memory cache with the given TTL.
func NewMemoryPageCache(ttl time.Duration) *MemoryPageCache {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &MemoryPageCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

// Get returns cached bytes if the entry has not expired.
func (c *MemoryPageCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.body, true
}

// Set stores bytes under the cache TTL.
func (c *MemoryPageCache) Set(key string, body []byte) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{body: body, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *MemoryPageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}
