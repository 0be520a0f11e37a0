package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity represents an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email).
	Principal string

	// Roles are the signature roles this principal may act for.
	Roles []string

	Method    AuthMethod
	ExpiresAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous
}

// AnonymousIdentity is attached to requests when authentication is disabled.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: "anonymous", Method: AuthMethodAnonymous}
}
