package channel

import (
	"context"
	"sync"
	"time"
)

// AliasCache maps vanity names to channel ids. Implementations may be durable.
type AliasCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CacheKeyPrefix namespaces alias entries in shared stores.
const CacheKeyPrefix = "discord_stream_bot:ChannelNameToId:"

// CacheKey returns the alias cache key for a vanity name.
func CacheKey(name string) string {
	return CacheKeyPrefix + name
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	channelID string
	createdAt time.Time
}

// NewMemoryCache returns a process-local AliasCache.
func NewMemoryCache() AliasCache {
	return &memoryCache{
		items: make(map[string]cacheItem),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if !ok {
		return "", false, nil
	}
	return item.channelID, true, nil
}

func (c *memoryCache) Set(_ context.Context, key, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{
		channelID: channelID,
		createdAt: time.Now(),
	}
	return nil
}
