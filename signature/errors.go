package signature

import "errors"

// Sentinel errors for signature validation.
var (
	ErrInvalidRole       = errors.New("signature: role is invalid")
	ErrInvalidContractID = errors.New("signature: contract id is invalid")
	ErrInvalidPayload    = errors.New("signature: payload is invalid")
)

// IsInvalidArgument reports whether err is one of the validation sentinels.
// Such errors are caller mistakes and are never worth retrying.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidContractID) ||
		errors.Is(err, ErrInvalidPayload)
}
