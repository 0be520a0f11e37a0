package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/contractsig/cache"
	"github.com/jonwraymond/contractsig/mirror"
	"github.com/jonwraymond/contractsig/observe"
	"github.com/jonwraymond/contractsig/remote"
	"github.com/jonwraymond/contractsig/signature"
)

// Operation names used for telemetry.
const (
	OpResolve         = "resolve"
	OpSaveSignature   = "save_signature"
	OpRemoveSignature = "remove_signature"
	OpInvalidate      = "invalidate"
	OpClear           = "clear"
)

// SourceCache is reported to metrics when a resolve is served by the cache.
const SourceCache = "cache"

// Reconciler owns the cache and keeps it consistent with the remote store.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - A mutation that returns nil is observed by every Resolve that starts
//     after it returns, in the same process.
//   - Resolve never reports a state as signed unless the remote store or
//     the mirror holds the record.
type Reconciler struct {
	store  remote.Store
	mirror mirror.Mirror
	cache  cache.Cache
	gen    cache.Generational // nil if the cache has no generations

	inst         *observe.Instrumenter
	logger       observe.Logger
	now          func() time.Time
	fetchTimeout time.Duration

	group  singleflight.Group
	optErr error
}

// DefaultFetchTimeout bounds a shared remote read when no other deadline
// applies.
const DefaultFetchTimeout = 10 * time.Second

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithInstrumenter sets the instrumenter for spans, metrics and logs.
func WithInstrumenter(inst *observe.Instrumenter) Option {
	return func(r *Reconciler) {
		if inst != nil {
			r.inst = inst
		}
	}
}

// WithObserver builds the instrumenter from obs. New fails if the metrics
// instruments cannot be created.
func WithObserver(obs observe.Observer) Option {
	return func(r *Reconciler) {
		inst, err := observe.InstrumenterFromObserver(obs)
		if err != nil {
			r.optErr = errors.Join(r.optErr, fmt.Errorf("reconcile: observer: %w", err))
			return
		}
		r.inst = inst
	}
}

// WithFetchTimeout bounds one shared remote read. Default: DefaultFetchTimeout
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// WithLogger overrides the logger used for degraded-path warnings.
func WithLogger(l observe.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the clock used for LastChecked and mirror sync stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Reconciler over the three tiers.
func New(store remote.Store, m mirror.Mirror, c cache.Cache, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if m == nil {
		return nil, ErrNilMirror
	}
	if c == nil {
		return nil, cache.ErrNilCache
	}

	r := &Reconciler{
		store:  store,
		mirror: m,
		cache:  c,
		inst:         observe.NopInstrumenter(),
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
	if g, ok := c.(cache.Generational); ok {
		r.gen = g
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.optErr != nil {
		return nil, r.optErr
	}
	if r.logger == nil {
		r.logger = r.inst.Logger()
	}
	r.logger = r.logger.With(observe.Field{Key: "component", Value: "reconcile"})
	return r, nil
}

// Resolve returns the current signature state for a contract.
//
// A fresh cache entry is returned without any I/O. Otherwise the remote store
// is read; on success its records replace whatever the mirror held, and both
// the mirror and the cache are updated. On remote failure the mirror's
// records are returned and cached. If the mirror has nothing usable the
// unsigned default is returned.
func (r *Reconciler) Resolve(ctx context.Context, contractID string) signature.State {
	var state signature.State
	_ = r.inst.Run(ctx, observe.Operation{Name: OpResolve, ContractID: contractID}, func(ctx context.Context) error {
		state = r.resolve(ctx, contractID)
		return nil
	})
	return state
}

func (r *Reconciler) resolve(ctx context.Context, contractID string) signature.State {
	if err := signature.ValidateContractID(contractID); err != nil {
		r.logger.Warn(ctx, "resolving invalid contract id to default state", observe.ErrorField(err))
		r.inst.Metrics().RecordResolve(ctx, string(signature.SourceDefault))
		return signature.Unsigned(r.now())
	}

	if state, ok := r.cache.Get(ctx, contractID); ok {
		r.inst.Metrics().RecordResolve(ctx, SourceCache)
		return state
	}

	var gen uint64
	if r.gen != nil {
		gen = r.gen.Generation(contractID)
	}

	// Coalesce concurrent misses for the same contract and generation. A
	// mutation bumps the generation, so resolves started after it never share
	// a read that started before it.
	key := contractID + "#" + strconv.FormatUint(gen, 10)
	// The shared read is detached from any one caller's cancellation: a caller
	// that gives up must not decide the result for the others or for the cache.
	ch := r.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		return r.fetch(fctx, contractID, gen), nil
	})

	var state signature.State
	select {
	case res := <-ch:
		state = res.Val.(signature.State).Clone()
	case <-ctx.Done():
		// Abandoned callers get the mirror's view; nothing is cached for them.
		state = r.mirrorState(ctx, contractID, r.now())
		r.logger.Debug(ctx, "resolve abandoned, serving mirror state",
			observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(ctx.Err()))
	}
	r.inst.Metrics().RecordResolve(ctx, string(state.Source))
	return state
}

// mirrorState builds a fallback state from the mirror alone.
func (r *Reconciler) mirrorState(ctx context.Context, contractID string, now time.Time) signature.State {
	candidate, mirrorErrs := mirror.LoadRecords(r.mirror, contractID)
	for _, err := range mirrorErrs {
		r.logger.Warn(ctx, "ignoring unreadable mirror entry",
			observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
	}
	source := signature.SourceMirror
	if candidate.Designer == nil && candidate.Client == nil {
		source = signature.SourceDefault
	}
	return signature.NewState(candidate, source, now)
}

// fetch performs the mirror and remote reads for one cache miss.
func (r *Reconciler) fetch(ctx context.Context, contractID string, gen uint64) signature.State {
	records, err := r.store.ReadSignatures(ctx, contractID)
	now := r.now()

	var state signature.State
	if err == nil {
		state = signature.NewState(records, signature.SourceRemote, now)
		if err := mirror.StoreRecords(r.mirror, contractID, records, now); err != nil {
			r.logger.Warn(ctx, "mirror sync failed",
				observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
		}
	} else {
		state = r.mirrorState(ctx, contractID, now)
		r.logger.Warn(ctx, "remote read failed, serving fallback state",
			observe.Field{Key: "contract_id", Value: contractID},
			observe.Field{Key: "source", Value: string(state.Source)},
			observe.ErrorField(err))
	}

	r.remember(ctx, contractID, state, gen)
	return state
}

// remember caches state unless the contract was invalidated since gen was read.
func (r *Reconciler) remember(ctx context.Context, contractID string, state signature.State, gen uint64) {
	if r.gen != nil {
		if !r.gen.PutIfGeneration(ctx, contractID, state, gen) {
			r.logger.Debug(ctx, "discarding state overtaken by invalidation",
				observe.Field{Key: "contract_id", Value: contractID})
		}
		return
	}
	if err := r.cache.Put(ctx, contractID, state); err != nil {
		r.logger.Warn(ctx, "cache put failed",
			observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
	}
}

// SaveSignature records payload as role's signature on a contract.
//
// The remote write happens first. If it fails the error is returned and
// nothing else changes. On success the cache entry is invalidated and the
// mirror is updated; a mirror failure at that point is logged only.
func (r *Reconciler) SaveSignature(ctx context.Context, contractID string, role signature.Role, payload json.RawMessage) error {
	op := observe.Operation{Name: OpSaveSignature, ContractID: contractID, Role: string(role)}
	return r.inst.Run(ctx, op, func(ctx context.Context) error {
		if err := validate(contractID, role); err != nil {
			return err
		}
		if err := signature.ValidatePayload(payload); err != nil {
			return err
		}

		if err := r.store.WriteSignature(ctx, contractID, role, payload); err != nil {
			return fmt.Errorf("reconcile: save %s signature: %w", role, err)
		}

		r.invalidate(ctx, contractID)

		now := r.now()
		rec := &signature.Record{Role: role, Payload: payload, SignedAt: now.UTC()}
		value, err := mirror.EncodeRecord(rec, now)
		if err == nil {
			err = r.mirror.Set(mirror.Key(role, contractID), value)
		}
		if err != nil {
			r.logger.Warn(ctx, "mirror update after save failed",
				observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
		}
		return nil
	})
}

// RemoveSignature deletes role's signature from a contract. It mirrors
// SaveSignature: remote delete, then cache invalidation, then mirror delete.
func (r *Reconciler) RemoveSignature(ctx context.Context, contractID string, role signature.Role) error {
	op := observe.Operation{Name: OpRemoveSignature, ContractID: contractID, Role: string(role)}
	return r.inst.Run(ctx, op, func(ctx context.Context) error {
		if err := validate(contractID, role); err != nil {
			return err
		}

		if err := r.store.DeleteSignature(ctx, contractID, role); err != nil {
			return fmt.Errorf("reconcile: remove %s signature: %w", role, err)
		}

		r.invalidate(ctx, contractID)

		if err := r.mirror.Remove(mirror.Key(role, contractID)); err != nil {
			r.logger.Warn(ctx, "mirror delete after remove failed",
				observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
		}
		return nil
	})
}

// Invalidate forces the next Resolve of a contract to bypass the cache.
func (r *Reconciler) Invalidate(ctx context.Context, contractID string) {
	_ = r.inst.Run(ctx, observe.Operation{Name: OpInvalidate, ContractID: contractID}, func(ctx context.Context) error {
		// Invalid ids are never cached; skipping them keeps arbitrary input
		// from adding cache generations.
		if err := signature.ValidateContractID(contractID); err != nil {
			r.logger.Debug(ctx, "ignoring invalidate of invalid contract id", observe.ErrorField(err))
			return nil
		}
		r.invalidate(ctx, contractID)
		return nil
	})
}

// ClearAll forces every next Resolve to bypass the cache.
func (r *Reconciler) ClearAll(ctx context.Context) {
	_ = r.inst.Run(ctx, observe.Operation{Name: OpClear}, func(ctx context.Context) error {
		if err := r.cache.Clear(ctx); err != nil {
			r.logger.Warn(ctx, "cache clear failed", observe.ErrorField(err))
		}
		return nil
	})
}

func (r *Reconciler) invalidate(ctx context.Context, contractID string) {
	if err := r.cache.Invalidate(ctx, contractID); err != nil {
		r.logger.Warn(ctx, "cache invalidate failed",
			observe.Field{Key: "contract_id", Value: contractID}, observe.ErrorField(err))
	}
}

func validate(contractID string, role signature.Role) error {
	if err := signature.ValidateContractID(contractID); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", signature.ErrInvalidRole, role)
	}
	return nil
}
