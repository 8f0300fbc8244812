package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache with lazy expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

var _ Cache = (*MemoryCache)(nil)

// Get retrieves an entry. Expired entries are removed lazily and
// reported as misses.
func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Entry{}, false
	}
	return entry, true
}

// Set stores a value with the given TTL. TTL<=0 disables caching for
// this call.
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	now := time.Now()
	c.mu.Lock()
	c.entries[key] = Entry{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes an entry. Idempotent.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included until
// they are lazily collected.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry that expired before now and reports how many
// were removed.
func (c *MemoryCache) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}
