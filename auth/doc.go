// Package auth authenticates HTTP callers with JWT bearer tokens and decides
// which signature roles a caller may act for.
//
// A caller may save or remove the signature for a role only when its token
// carries that role in the roles claim. When authentication is disabled the
// anonymous identity is attached and may act for any role.
package auth
