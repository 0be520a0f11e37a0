// Package reconcile produces up-to-date signature states and applies
// signature mutations across the three tiers.
//
// Reads go to the fast cache first, then the remote store, falling back to
// the device-local mirror and finally to the unsigned default. Writes go to
// the remote store first; only a successful remote write invalidates the
// cache and updates the mirror.
//
// Resolve never fails. Mutations fail whenever the remote store does, and
// leave the cache and mirror untouched when they do.
package reconcile
