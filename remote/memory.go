package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonwraymond/contractsig/signature"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]signature.Records
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]signature.Records),
		now:     time.Now,
	}
}

func (s *MemoryStore) ReadSignatures(ctx context.Context, contractID string) (signature.Records, error) {
	if err := ctx.Err(); err != nil {
		return signature.Records{}, err
	}
	if err := signature.ValidateContractID(contractID); err != nil {
		return signature.Records{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.records[contractID]
	return signature.Records{Designer: rs.Designer.Clone(), Client: rs.Client.Clone()}, nil
}

func (s *MemoryStore) WriteSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(contractID, role); err != nil {
		return err
	}
	if err := signature.ValidatePayload(payload); err != nil {
		return err
	}

	rec := &signature.Record{Role: role, Payload: payload, SignedAt: s.now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.records[contractID]
	rs.Set(role, rec.Clone())
	s.records[contractID] = rs
	return nil
}

func (s *MemoryStore) DeleteSignature(ctx context.Context, contractID string, role signature.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(contractID, role); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.records[contractID]
	if !ok {
		return nil
	}
	rs.Set(role, nil)
	if rs.Designer == nil && rs.Client == nil {
		delete(s.records, contractID)
		return nil
	}
	s.records[contractID] = rs
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports how many contracts hold at least one signature.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
