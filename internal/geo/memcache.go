package geo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"rainparade/internal/types"
)

// MemoryCache is a process-local TTL cache for resolved addresses. It is the
// default when no database is configured; entries do not survive restarts
// and are not shared between replicas.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memCacheEntry
	clock   types.Clock
}

type memCacheEntry struct {
	addr      types.Address
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory geocode cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memCacheEntry),
		clock:   types.RealClock{},
	}
}

// memCacheKey rounds both coordinates to two decimals, the same precision the
// database cache keys on.
func memCacheKey(pt types.GeoPoint) string {
	return fmt.Sprintf("%.2f|%.2f",
		math.Round(pt.Latitude*100)/100,
		math.Round(pt.Longitude*100)/100,
	)
}

// Get returns the cached address for the point, or (nil, nil) when the entry
// is absent or expired. Expired entries are removed eagerly.
func (c *MemoryCache) Get(_ context.Context, pt types.GeoPoint) (*types.Address, error) {
	key := memCacheKey(pt)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry.
		if cur, still := c.entries[key]; still && c.clock.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, nil
	}

	addr := entry.addr
	return &addr, nil
}

// Put stores the address under the rounded-coordinate key with the given TTL.
func (c *MemoryCache) Put(_ context.Context, pt types.GeoPoint, addr *types.Address, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[memCacheKey(pt)] = memCacheEntry{
		addr:      *addr,
		expiresAt: c.clock.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// DeleteExpired removes all entries whose TTL has elapsed and reports how
// many were dropped. Get already filters expired entries; the sweep just
// keeps the map from growing unbounded.
func (c *MemoryCache) DeleteExpired(_ context.Context) (int64, error) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var deleted int64
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of entries currently held, including any expired
// ones not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
