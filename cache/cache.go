package cache

import (
	"context"
	"errors"

	"github.com/jonwraymond/contractsig/signature"
)

// Sentinel errors for cache operations.
var (
	ErrNilCache = errors.New("cache: cache is nil")
)

// Cache is the interface for the local fast cache of signature states.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Freshness: Get must never return an entry whose age is >= the TTL.
// - Errors: Get never errors; it returns (State{}, false) on miss or staleness.
type Cache interface {
	// Get returns the fresh state for a contract.
	Get(ctx context.Context, contractID string) (signature.State, bool)

	// Put stores a state, stamping it with the current time.
	Put(ctx context.Context, contractID string, state signature.State) error

	// Invalidate drops the entry for a contract. Idempotent.
	Invalidate(ctx context.Context, contractID string) error

	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// Generational is implemented by caches that can reject writes made on behalf
// of a read that was overtaken by an invalidation.
type Generational interface {
	Cache

	// Generation returns the current generation for a contract.
	Generation(contractID string) uint64

	// PutIfGeneration stores state only if the contract's generation is still gen.
	// Reports whether the write happened.
	PutIfGeneration(ctx context.Context, contractID string, state signature.State, gen uint64) bool
}
