// Package signature defines the signature data model shared by every tier:
// roles, opaque signature records, and the resolved per-contract state.
package signature
