// Package editgate decides whether a contract may still be edited and
// exposes the signature operations to the editing UI and signing flow.
package editgate

import "github.com/jonwraymond/contractsig/signature"

// LockedReason is returned when a contract is locked by the designer's signature.
const LockedReason = "This contract has been signed by the designer and can no longer be edited. Remove the designer signature to make changes."

// Decision is the outcome of an edit-gate check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanEdit reports whether a contract in state may be edited.
//
// Only the designer's signature locks a contract. A client signature on its
// own does not.
func CanEdit(state signature.State) Decision {
	if state.HasDesignerSignature {
		return Decision{Allowed: false, Reason: LockedReason}
	}
	return Decision{Allowed: true}
}
