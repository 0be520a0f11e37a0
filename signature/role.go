package signature

import (
	"fmt"
	"strings"
)

// Role identifies which party signed a contract.
type Role string

const (
	// RoleDesigner is the party that authored the contract.
	RoleDesigner Role = "designer"
	// RoleClient is the counterparty.
	RoleClient Role = "client"
)

// Roles returns every role in a fixed order: designer, then client.
func Roles() []Role {
	return []Role{RoleDesigner, RoleClient}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDesigner || r == RoleClient
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}
