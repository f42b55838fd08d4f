package metadata

import (
	"sync"
	"time"

	"whale-alerts/internal/domain"
)

// DefaultTTL is how long resolved metadata is reused.
const DefaultTTL = 5 * time.Minute

// DefaultMaxEntries caps the number of cached mints.
const DefaultMaxEntries = 10_000

type cacheEntry struct {
	meta      domain.TokenMetadata
	expiresAt time.Time
}

// Cache is a TTL cache of metadata keyed by mint.
type Cache struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCache creates a Cache. Non-positive arguments take defaults.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{ttl: ttl, maxEntries: maxEntries, items: make(map[string]cacheEntry)}
}

// Get returns a fresh entry for mint.
func (c *Cache) Get(mint string, now time.Time) (domain.TokenMetadata, bool) {
	c.mu.RLock()
	entry, ok := c.items[mint]
	c.mu.RUnlock()
	if !ok || !now.Before(entry.expiresAt) {
		return domain.TokenMetadata{}, false
	}
	return entry.meta, true
}

// Set stores meta for mint. Once the cache is full, expired entries are swept
// and, if none were, the entry closest to expiry is evicted.
func (c *Cache) Set(mint string, meta domain.TokenMetadata, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[mint]; !exists && len(c.items) >= c.maxEntries {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.items {
			if !now.Before(e.expiresAt) {
				delete(c.items, k)
				continue
			}
			if oldest == "" || e.expiresAt.Before(oldestAt) {
				oldest, oldestAt = k, e.expiresAt
			}
		}
		if len(c.items) >= c.maxEntries {
			delete(c.items, oldest)
		}
	}
	c.items[mint] = cacheEntry{meta: meta, expiresAt: now.Add(c.ttl)}
}

// Len returns the number of stored entries, including stale ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
