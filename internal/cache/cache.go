// Package cache holds the last known snapshot of every managed account.
package cache

import (
	"sync"

	"terminal_bridge/internal/metrics"
	"terminal_bridge/internal/models"
)

// AccountCache maps account id to its most recent snapshot. Entries are only
// ever replaced, never removed.
type AccountCache struct {
	mu      sync.RWMutex
	entries map[int64]models.AccountSnapshot
}

func New() *AccountCache {
	return &AccountCache{entries: make(map[int64]models.AccountSnapshot)}
}

// Get returns the stored snapshot for id.
func (c *AccountCache) Get(id int64) (models.AccountSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[id]
	return snap, ok
}

// Set stores a fresh snapshot. It is tagged live regardless of its source field.
func (c *AccountCache) Set(id int64, snap models.AccountSnapshot) {
	snap.AccountID = id
	snap.Source = models.SourceLive

	c.mu.Lock()
	c.entries[id] = snap
	c.mu.Unlock()

	metrics.CacheWrites.Add(1)
}

// MarkCached tags a stored entry as cached after a failed refresh. Values and
// timestamp are kept. No-op when nothing is stored.
func (c *AccountCache) MarkCached(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.entries[id]; ok {
		snap.Source = models.SourceCached
		c.entries[id] = snap
	}
}

// Snapshot returns the stored entry or the no_cache placeholder.
func (c *AccountCache) Snapshot(id int64) models.AccountSnapshot {
	if snap, ok := c.Get(id); ok {
		return snap
	}
	return models.NoCacheSnapshot(id)
}

// Count returns the number of accounts with a stored snapshot.
func (c *AccountCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
