package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonwraymond/contractsig/resilience"
	"github.com/jonwraymond/contractsig/signature"
)

// Resilient runs every Store call through a resilience.Executor.
//
// Invalid-argument errors pass through unchanged without being retried or
// counted by the breaker. Every other failure, including an open circuit, is
// returned wrapped in ErrUnavailable.
type Resilient struct {
	store    Store
	executor *resilience.Executor
}

// NewResilient wraps store. A nil executor disables protection.
func NewResilient(store Store, executor *resilience.Executor) *Resilient {
	if executor == nil {
		executor = resilience.NewExecutor()
	}
	return &Resilient{store: store, executor: executor}
}

// CircuitBreaker returns the breaker guarding the store, or nil.
func (r *Resilient) CircuitBreaker() *resilience.CircuitBreaker {
	return r.executor.CircuitBreaker()
}

func (r *Resilient) ReadSignatures(ctx context.Context, contractID string) (signature.Records, error) {
	// An attempt abandoned by the timeout may still finish in the background.
	var (
		mu  sync.Mutex
		out signature.Records
	)
	err := r.run(ctx, func(ctx context.Context) error {
		rs, err := r.store.ReadSignatures(ctx, contractID)
		if err != nil {
			return err
		}
		mu.Lock()
		out = rs
		mu.Unlock()
		return nil
	})
	if err != nil {
		return signature.Records{}, err
	}
	mu.Lock()
	defer mu.Unlock()
	return out, nil
}

func (r *Resilient) WriteSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error {
	return r.run(ctx, func(ctx context.Context) error {
		return r.store.WriteSignature(ctx, contractID, role, payload)
	})
}

func (r *Resilient) DeleteSignature(ctx context.Context, contractID string, role signature.Role) error {
	return r.run(ctx, func(ctx context.Context) error {
		return r.store.DeleteSignature(ctx, contractID, role)
	})
}

// Ping forwards to the wrapped store when it supports it. Ping bypasses the
// executor so health checks observe the backend directly.
func (r *Resilient) Ping(ctx context.Context) error {
	if p, ok := r.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *Resilient) run(ctx context.Context, op func(context.Context) error) error {
	err := r.executor.Execute(ctx, func(ctx context.Context) error {
		err := op(ctx)
		if signature.IsInvalidArgument(err) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if signature.IsInvalidArgument(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
