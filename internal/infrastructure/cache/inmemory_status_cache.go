package cache

import (
	"context"
	"sync"
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/google/uuid"
)

// InMemoryStatusCache caches usage status snapshots in process memory.
// Suitable for single-instance deployments and tests; distributed
// deployments should use RedisStatusCache so invalidations are shared.
type InMemoryStatusCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]statusEntry
	ttl     time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

type statusEntry struct {
	status    *appmetering.UsageStatusDTO
	expiresAt time.Time
}

// NewInMemoryStatusCache creates an in-memory status cache and starts a
// background goroutine that evicts expired entries
func NewInMemoryStatusCache(ttl time.Duration) *InMemoryStatusCache {
	c := &InMemoryStatusCache{
		entries:     make(map[uuid.UUID]statusEntry),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// GetStatus retrieves a cached status snapshot
func (c *InMemoryStatusCache) GetStatus(_ context.Context, subscriberID uuid.UUID) (*appmetering.UsageStatusDTO, bool) {
	c.mu.RLock()
	entry, ok := c.entries[subscriberID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.status, true
}

// SetStatus stores a status snapshot with the configured TTL
func (c *InMemoryStatusCache) SetStatus(_ context.Context, subscriberID uuid.UUID, status *appmetering.UsageStatusDTO) {
	c.mu.Lock()
	c.entries[subscriberID] = statusEntry{
		status:    status,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops the cached snapshot after a write to the ledger
func (c *InMemoryStatusCache) Invalidate(_ context.Context, subscriberID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, subscriberID)
	c.mu.Unlock()
}

// Close stops the cleanup goroutine
func (c *InMemoryStatusCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})
	return nil
}

func (c *InMemoryStatusCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *InMemoryStatusCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

// Ensure InMemoryStatusCache implements StatusCache
var _ appmetering.StatusCache = (*InMemoryStatusCache)(nil)
