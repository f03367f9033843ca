package groups

import (
	"context"
	"sync"
	"time"

	"github.com/jarbasai/jarbas/pkg/models"
)

// MemoryCache is an in-process Cache for tests and single-node setups.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]models.GroupSnapshot
	now       func() time.Time
}

// NewMemoryCache creates an empty in-memory membership cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		snapshots: make(map[string]models.GroupSnapshot),
		now:       time.Now,
	}
}

// Members returns the stored snapshot if it has not expired.
func (c *MemoryCache) Members(_ context.Context, groupID string) (models.GroupSnapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.snapshots[groupID]
	if !ok || snapshot.Expired(c.now()) {
		return models.GroupSnapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Put replaces the group's snapshot with a fresh expiry.
func (c *MemoryCache) Put(_ context.Context, snapshot models.GroupSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	snapshot.CapturedAt = now
	snapshot.ExpiresAt = now.Add(ttl)
	c.snapshots[snapshot.GroupID] = snapshot
	return nil
}
