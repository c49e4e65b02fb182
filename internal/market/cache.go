package market

import (
	"sync"
	"time"
)

// Cache provides a TTL-based in-memory cache for chain snapshots, so repeat
// scans inside one interval reuse a single provider fetch.
type Cache struct {
	mu        sync.RWMutex
	snapshots map[string]cacheEntry
	ttl       time.Duration
}

type cacheEntry struct {
	snap      Snapshot
	fetchedAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		snapshots: make(map[string]cacheEntry),
		ttl:       ttl,
	}
}

func (c *Cache) Get(symbol string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.snapshots[symbol]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return Snapshot{}, false
	}
	return entry.snap, true
}

func (c *Cache) Set(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots[snap.Symbol] = cacheEntry{
		snap:      snap,
		fetchedAt: time.Now(),
	}
}
