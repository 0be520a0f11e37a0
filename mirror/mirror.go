package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/contractsig/signature"
)

// Sentinel errors for mirror operations.
var (
	ErrMalformedEntry = errors.New("mirror: malformed entry")
	ErrClosed         = errors.New("mirror: closed")
)

// Mirror is a synchronous local key/value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get returns ("", false, nil) when the key is absent; errors are
//   reserved for the store itself being unusable.
type Mirror interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Key returns the mirror key for one role's signature on one contract.
func Key(role signature.Role, contractID string) string {
	return fmt.Sprintf("contract-%s-signature-%s", role, contractID)
}

// entry is the on-disk form of a mirrored record.
type entry struct {
	Role     signature.Role  `json:"role"`
	Payload  json.RawMessage `json:"payload"`
	SignedAt time.Time       `json:"signed_at,omitzero"`
	SyncedAt time.Time       `json:"synced_at"`
}

// EncodeRecord serializes rec for storage, recording when it was synced.
func EncodeRecord(rec *signature.Record, syncedAt time.Time) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: nil record", ErrMalformedEntry)
	}
	data, err := json.Marshal(entry{
		Role:     rec.Role,
		Payload:  rec.Payload,
		SignedAt: rec.SignedAt,
		SyncedAt: syncedAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("mirror: encode record: %w", err)
	}
	return string(data), nil
}

// DecodeRecord parses a stored value. The decoded role must match want.
func DecodeRecord(value string, want signature.Role) (*signature.Record, error) {
	var e entry
	if err := json.Unmarshal([]byte(value), &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	if e.Role != want {
		return nil, fmt.Errorf("%w: role %q stored under %q key", ErrMalformedEntry, e.Role, want)
	}
	if err := signature.ValidatePayload(e.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	return &signature.Record{Role: e.Role, Payload: e.Payload, SignedAt: e.SignedAt}, nil
}

// LoadRecords reads both roles for a contract. Absent and malformed entries
// both come back as nil records; malformed ones are reported in the returned
// error slice so callers can log them without failing the read.
func LoadRecords(m Mirror, contractID string) (signature.Records, []error) {
	var (
		records signature.Records
		errs    []error
	)
	for _, role := range signature.Roles() {
		key := Key(role, contractID)
		value, ok, err := m.Get(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror: get %s: %w", key, err))
			continue
		}
		if !ok {
			continue
		}
		rec, err := DecodeRecord(value, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror: decode %s: %w", key, err))
			continue
		}
		records.Set(role, rec)
	}
	return records, errs
}

// StoreRecords makes the mirror match records exactly: present records are
// written, absent ones removed.
func StoreRecords(m Mirror, contractID string, records signature.Records, syncedAt time.Time) error {
	var errs []error
	for _, role := range signature.Roles() {
		key := Key(role, contractID)
		rec := records.Get(role)
		if rec == nil {
			if err := m.Remove(key); err != nil {
				errs = append(errs, fmt.Errorf("mirror: remove %s: %w", key, err))
			}
			continue
		}
		value, err := EncodeRecord(rec, syncedAt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.Set(key, value); err != nil {
			errs = append(errs, fmt.Errorf("mirror: set %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
