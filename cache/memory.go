package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/contractsig/signature"
)

// MemoryCache is an in-memory Cache keyed by contract id.
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[string]cacheEntry
	generations map[string]uint64
	epoch       uint64
	ttl         time.Duration
	now         func() time.Time
}

type cacheEntry struct {
	state      signature.State
	insertedAt time.Time
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries:     make(map[string]cacheEntry),
		generations: make(map[string]uint64),
		ttl:         policy.EffectiveTTL(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the effective freshness window.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the state for contractID if its entry is younger than the TTL.
// Stale entries are left in place and reported as a miss.
func (c *MemoryCache) Get(_ context.Context, contractID string) (signature.State, bool) {
	c.mu.RLock()
	entry, ok := c.entries[contractID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.insertedAt) >= c.ttl {
		return signature.State{}, false
	}
	return entry.state.Clone(), true
}

// Put overwrites the entry for contractID and stamps it with the current time.
func (c *MemoryCache) Put(_ context.Context, contractID string, state signature.State) error {
	if c.ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	c.entries[contractID] = cacheEntry{state: state.Clone(), insertedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Generation returns the current generation for contractID.
func (c *MemoryCache) Generation(contractID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationLocked(contractID)
}

// PutIfGeneration stores state only if no Invalidate or Clear happened since
// gen was observed.
func (c *MemoryCache) PutIfGeneration(_ context.Context, contractID string, state signature.State, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationLocked(contractID) != gen {
		return false
	}
	c.entries[contractID] = cacheEntry{state: state.Clone(), insertedAt: c.now()}
	return true
}

// Invalidate removes the entry for contractID unconditionally.
func (c *MemoryCache) Invalidate(_ context.Context, contractID string) error {
	c.mu.Lock()
	delete(c.entries, contractID)
	c.generations[contractID] = c.generationLocked(contractID) + 1
	c.mu.Unlock()
	return nil
}

// Clear drops all entries.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	// Per-contract counters restart under a new epoch so old generations can
	// never match again.
	c.epoch += 1 << 32
	c.entries = make(map[string]cacheEntry)
	c.generations = make(map[string]uint64)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, fresh or stale.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) generationLocked(contractID string) uint64 {
	return c.epoch + c.generations[contractID]
}

// Ensure MemoryCache implements Generational
var _ Generational = (*MemoryCache)(nil)
