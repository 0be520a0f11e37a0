package auth

import (
	"fmt"

	"github.com/jonwraymond/contractsig/signature"
)

// CanSign reports whether id may save or remove the signature for role.
func CanSign(id *Identity, role signature.Role) error {
	if id == nil {
		return ErrMissingCredentials
	}
	if id.IsAnonymous() {
		return nil
	}
	if !id.HasRole(role.String()) {
		return fmt.Errorf("%w: %s may not sign as %s", ErrForbidden, id.Principal, role)
	}
	return nil
}
