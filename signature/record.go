package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxContractIDLength is the maximum allowed length for a contract id.
const MaxContractIDLength = 256

// Record is one party's signature on one contract.
//
// Payload is opaque (typically an image data URL plus signer metadata) and is
// stored and forwarded byte for byte.
type Record struct {
	Role     Role            `json:"role"`
	Payload  json.RawMessage `json:"payload"`
	SignedAt time.Time       `json:"signed_at,omitzero"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Payload != nil {
		c.Payload = append(json.RawMessage(nil), r.Payload...)
	}
	return &c
}

// Records is the raw result of reading a contract's signatures from a store.
// A nil field means that party has not signed.
type Records struct {
	Designer *Record
	Client   *Record
}

// Get returns the record for role, or nil.
func (rs Records) Get(role Role) *Record {
	switch role {
	case RoleDesigner:
		return rs.Designer
	case RoleClient:
		return rs.Client
	default:
		return nil
	}
}

// Set stores rec under role. Unknown roles are ignored.
func (rs *Records) Set(role Role, rec *Record) {
	switch role {
	case RoleDesigner:
		rs.Designer = rec
	case RoleClient:
		rs.Client = rec
	}
}

// ValidatePayload checks that payload is non-empty, well-formed JSON other
// than null.
func ValidatePayload(payload []byte) error {
	if len(payload) == 0 || !json.Valid(payload) || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return ErrInvalidPayload
	}
	return nil
}

// ValidateContractID checks that id can be used as a key in every tier.
func ValidateContractID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidContractID
	}
	if len(id) > MaxContractIDLength {
		return fmt.Errorf("%w: exceeds %d bytes", ErrInvalidContractID, MaxContractIDLength)
	}
	for _, c := range id {
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("%w: contains control characters", ErrInvalidContractID)
		}
	}
	return nil
}
