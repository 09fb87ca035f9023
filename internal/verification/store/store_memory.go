// Package store provides the in-memory verdict cache used by the
// verification service.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"hetu/internal/verification/models"
)

type cachedVerdict struct {
	verdict  models.Verdict
	storedAt time.Time
}

// InMemoryCache caches verification verdicts with TTL expiration, keyed by
// the hashed identity code. Raw codes are never used as keys.
type InMemoryCache struct {
	mu       sync.RWMutex
	verdicts map[string]cachedVerdict
	cacheTTL time.Duration
}

// ErrNotFound is returned when a requested verdict does not exist in the cache.
var ErrNotFound = errors.New("not found")

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		verdicts: make(map[string]cachedVerdict),
		cacheTTL: cacheTTL,
	}
}

// Save stores a verdict keyed by its subject hash.
// If verdict is nil, the operation is a no-op and returns nil.
func (c *InMemoryCache) Save(_ context.Context, verdict *models.Verdict) error {
	if verdict == nil {
		return nil
	}
	if verdict.SubjectHash == "" {
		return errors.New("subject hash required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts[verdict.SubjectHash] = cachedVerdict{verdict: *verdict, storedAt: time.Now()}
	return nil
}

// Find retrieves a cached verdict by subject hash.
// Returns ErrNotFound if the verdict does not exist or has expired past the
// cache TTL.
func (c *InMemoryCache) Find(_ context.Context, subjectHash string) (*models.Verdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.verdicts[subjectHash]; ok {
		if time.Since(cached.storedAt) < c.cacheTTL {
			verdict := cached.verdict
			return &verdict, nil
		}
	}
	return nil, ErrNotFound
}

// Purge drops every cached verdict and reports how many were removed.
// Expired entries count as removed; they occupied memory until now.
func (c *InMemoryCache) Purge(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	purged := len(c.verdicts)
	c.verdicts = make(map[string]cachedVerdict)
	return purged
}

// Len reports the number of entries currently held, including expired ones
// that have not been purged.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.verdicts)
}
