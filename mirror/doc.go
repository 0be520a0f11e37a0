// Package mirror provides the device-local mirror: a string-keyed,
// string-valued store that keeps the last synced signature records for each
// contract so reads can degrade gracefully while the remote store is down.
//
// The mirror is a hint, never the source of truth. Keys are namespaced per
// role and contract:
//
//	contract-<role>-signature-<contractId>
//
// Two implementations are provided: Memory for tests and ephemeral processes,
// and SQLite for a durable on-device file.
package mirror
