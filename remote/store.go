package remote

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jonwraymond/contractsig/signature"
)

// ErrUnavailable indicates the remote store could not be reached or failed
// the request. The underlying cause is wrapped.
var ErrUnavailable = errors.New("remote: store unavailable")

// Store is the durable source of truth for signatures.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: implementations must honor cancellation and deadlines.
//   - Errors: invalid arguments return signature.ErrInvalid* sentinels; every
//     other failure is an unavailability of the store.
//   - Writes overwrite the previous record for the same (contract, role);
//     deletes of absent records succeed.
type Store interface {
	ReadSignatures(ctx context.Context, contractID string) (signature.Records, error)
	WriteSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error
	DeleteSignature(ctx context.Context, contractID string, role signature.Role) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

func validateKey(contractID string, role signature.Role) error {
	if err := signature.ValidateContractID(contractID); err != nil {
		return err
	}
	if !role.Valid() {
		return signature.ErrInvalidRole
	}
	return nil
}
