package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/contractsig/cache"
	"github.com/jonwraymond/contractsig/mirror"
	"github.com/jonwraymond/contractsig/remote"
	"github.com/jonwraymond/contractsig/signature"
)

var errRemoteDown = errors.New("remote: connection refused")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeStore counts calls and injects failures on top of a MemoryStore.
type fakeStore struct {
	inner *remote.MemoryStore

	mu        sync.Mutex
	reads     int
	writes    int
	deletes   int
	readErr   error
	writeErr  error
	deleteErr error

	// onRead, when set, runs at the start of every read.
	onRead func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{inner: remote.NewMemoryStore()}
}

func (s *fakeStore) ReadSignatures(ctx context.Context, id string) (signature.Records, error) {
	s.mu.Lock()
	s.reads++
	err := s.readErr
	hook := s.onRead
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return signature.Records{}, err
	}
	return s.inner.ReadSignatures(ctx, id)
}

func (s *fakeStore) WriteSignature(ctx context.Context, id string, role signature.Role, payload json.RawMessage) error {
	s.mu.Lock()
	s.writes++
	err := s.writeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.WriteSignature(ctx, id, role, payload)
}

func (s *fakeStore) DeleteSignature(ctx context.Context, id string, role signature.Role) error {
	s.mu.Lock()
	s.deletes++
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.DeleteSignature(ctx, id, role)
}

func (s *fakeStore) setReadErr(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

func (s *fakeStore) setOnRead(fn func()) {
	s.mu.Lock()
	s.onRead = fn
	s.mu.Unlock()
}

func (s *fakeStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// seed writes directly to the backing store without counting.
func (s *fakeStore) seed(t *testing.T, id string, role signature.Role, payload string) {
	t.Helper()
	if err := s.inner.WriteSignature(context.Background(), id, role, json.RawMessage(payload)); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// brokenMirror fails every operation.
type brokenMirror struct{}

var errMirrorBroken = errors.New("mirror: quota exceeded")

func (brokenMirror) Get(string) (string, bool, error) { return "", false, errMirrorBroken }
func (brokenMirror) Set(string, string) error         { return errMirrorBroken }
func (brokenMirror) Remove(string) error              { return errMirrorBroken }
func (brokenMirror) Close() error                     { return nil }

type fixture struct {
	store  *fakeStore
	mirror *mirror.Memory
	cache  *cache.MemoryCache
	clock  *fakeClock
	rec    *Reconciler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  newFakeStore(),
		mirror: mirror.NewMemory(),
		clock:  newFakeClock(),
	}
	f.cache = cache.NewMemoryCache(cache.DefaultPolicy(), cache.WithClock(f.clock.Now))

	rec, err := New(f.store, f.mirror, f.cache, append([]Option{WithClock(f.clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.rec = rec
	return f
}
