package matching

import (
	"context"
	"sync"
	"time"

	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

// CompatibilityCache stores scored pairs. It is advisory: a miss or a failed
// write never affects correctness.
type CompatibilityCache interface {
	// Get returns the result only while its lease is valid.
	Get(ctx context.Context, key scoring.PairKey) (*scoring.CompatibilityResult, bool)
	// Put overwrites any existing entry. The lease runs from result.ComputedAt.
	Put(ctx context.Context, key scoring.PairKey, result *scoring.CompatibilityResult, ttl time.Duration)
	// InvalidateUser drops every pair that includes userID.
	InvalidateUser(ctx context.Context, userID int64)
}

// leaseFor stamps the expiry on a copy of the result. ok is false when the lease
// has already lapsed, in which case the result must not be stored.
func leaseFor(result *scoring.CompatibilityResult, ttl time.Duration, now time.Time) (*scoring.CompatibilityResult, bool) {
	if result == nil || ttl <= 0 {
		return nil, false
	}
	from := result.ComputedAt
	if from.IsZero() {
		from = now
	}
	stored := *result
	stored.ExpiresAt = from.Add(ttl)
	if stored.Expired(now) {
		return nil, false
	}
	return &stored, true
}

// MemoryCache is an in-process CompatibilityCache. Expiry is checked under the
// same lock that guards the map.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[scoring.PairKey]*scoring.CompatibilityResult
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[scoring.PairKey]*scoring.CompatibilityResult),
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key scoring.PairKey) (*scoring.CompatibilityResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || item.Expired(c.now()) {
		return nil, false
	}
	out := *item
	return &out, true
}

func (c *MemoryCache) Put(_ context.Context, key scoring.PairKey, result *scoring.CompatibilityResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := leaseFor(result, ttl, c.now())
	if !ok {
		return
	}
	c.items[key] = stored
}

func (c *MemoryCache) InvalidateUser(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if key.Has(userID) {
			delete(c.items, key)
		}
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if item.Expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
