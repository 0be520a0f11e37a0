// Package cache provides the process-local fast cache of resolved signature
// states.
//
// Entries are fresh for a short TTL (5 seconds by default) and are skipped,
// not swept, once stale. Every contract also carries a generation counter that
// Invalidate and Clear advance, so a slow resolve that began before a mutation
// cannot write its pre-mutation result back over the invalidation.
package cache
