package editgate

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jonwraymond/contractsig/signature"
)

// ErrNilReconciler indicates a nil Reconciler was provided.
var ErrNilReconciler = errors.New("editgate: reconciler is nil")

// Reconciler is the subset of reconcile.Reconciler the service needs.
type Reconciler interface {
	Resolve(ctx context.Context, contractID string) signature.State
	SaveSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error
	RemoveSignature(ctx context.Context, contractID string, role signature.Role) error
	Invalidate(ctx context.Context, contractID string)
	ClearAll(ctx context.Context)
}

// ContractDecision is an edit-gate decision together with the state it was
// derived from.
type ContractDecision struct {
	CanEdit        bool            `json:"can_edit"`
	Reason         string          `json:"reason,omitempty"`
	SignatureState signature.State `json:"signature_state"`
}

// MutationResult reports the outcome of a save or remove.
type MutationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Err is the underlying error, for callers that need errors.Is.
	Err error `json:"-"`
}

func resultOf(err error) MutationResult {
	if err != nil {
		return MutationResult{Success: false, Error: err.Error(), Err: err}
	}
	return MutationResult{Success: true}
}

// Service is the caller-facing API over a Reconciler.
type Service struct {
	reconciler Reconciler
}

// NewService creates a Service.
func NewService(r Reconciler) (*Service, error) {
	if r == nil {
		return nil, ErrNilReconciler
	}
	return &Service{reconciler: r}, nil
}

// CanEditContract resolves a contract and applies the edit gate to it.
func (s *Service) CanEditContract(ctx context.Context, contractID string) ContractDecision {
	state := s.reconciler.Resolve(ctx, contractID)
	d := CanEdit(state)
	return ContractDecision{CanEdit: d.Allowed, Reason: d.Reason, SignatureState: state}
}

// GetSignatureState resolves a contract's signature state.
func (s *Service) GetSignatureState(ctx context.Context, contractID string) signature.State {
	return s.reconciler.Resolve(ctx, contractID)
}

// SaveSignature records role's signature on a contract.
func (s *Service) SaveSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) MutationResult {
	return resultOf(s.reconciler.SaveSignature(ctx, contractID, role, payload))
}

// RemoveSignature deletes role's signature from a contract.
func (s *Service) RemoveSignature(ctx context.Context, contractID string, role signature.Role) MutationResult {
	return resultOf(s.reconciler.RemoveSignature(ctx, contractID, role))
}

// InvalidateCache forces the next read of a contract to bypass the cache.
func (s *Service) InvalidateCache(ctx context.Context, contractID string) {
	s.reconciler.Invalidate(ctx, contractID)
}

// ClearCache forces every next read to bypass the cache.
func (s *Service) ClearCache(ctx context.Context) {
	s.reconciler.ClearAll(ctx)
}
