// Package remote implements the durable, authoritative signature store.
//
// Store is the contract every backend satisfies. MemoryStore backs dev mode
// and tests, PostgresStore is the production backend, and Resilient wraps
// either one with timeout, retry and circuit-breaker protection so callers
// see a single ErrUnavailable for every transient failure.
package remote
