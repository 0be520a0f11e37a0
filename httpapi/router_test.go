package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/contractsig/auth"
	"github.com/jonwraymond/contractsig/cache"
	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/health"
	"github.com/jonwraymond/contractsig/mirror"
	"github.com/jonwraymond/contractsig/reconcile"
	"github.com/jonwraymond/contractsig/remote"
	"github.com/jonwraymond/contractsig/signature"
)

var errDown = errors.New("connection refused")

type downableStore struct {
	*remote.MemoryStore
	down bool
}

func (s *downableStore) ReadSignatures(ctx context.Context, id string) (signature.Records, error) {
	if s.down {
		return signature.Records{}, errDown
	}
	return s.MemoryStore.ReadSignatures(ctx, id)
}

func (s *downableStore) WriteSignature(ctx context.Context, id string, role signature.Role, p json.RawMessage) error {
	if s.down {
		return errDown
	}
	return s.MemoryStore.WriteSignature(ctx, id, role, p)
}

func (s *downableStore) DeleteSignature(ctx context.Context, id string, role signature.Role) error {
	if s.down {
		return errDown
	}
	return s.MemoryStore.DeleteSignature(ctx, id, role)
}

type testServer struct {
	handler http.Handler
	store   *downableStore
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := &downableStore{MemoryStore: remote.NewMemoryStore()}
	r, err := reconcile.New(store, mirror.NewMemory(), cache.NewMemoryCache(cache.DefaultPolicy()))
	require.NoError(t, err)
	svc, err := editgate.NewService(r)
	require.NoError(t, err)
	return &testServer{handler: NewRouter(svc, opts), store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_SignAndGate(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/v1/contracts/abc123/edit-gate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[editgate.ContractDecision](t, rec)
	assert.True(t, d.CanEdit)
	assert.Equal(t, signature.SourceRemote, d.SignatureState.Source)

	rec = s.do(t, http.MethodPut, "/v1/contracts/abc123/signatures/designer", `{"payload":{"image":"data:png"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[editgate.MutationResult](t, rec).Success)

	rec = s.do(t, http.MethodGet, "/v1/contracts/abc123/edit-gate", "", nil)
	d = decode[editgate.ContractDecision](t, rec)
	assert.False(t, d.CanEdit)
	assert.Equal(t, editgate.LockedReason, d.Reason)

	rec = s.do(t, http.MethodGet, "/v1/contracts/abc123/signatures", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[signature.State](t, rec)
	assert.True(t, st.HasDesignerSignature)
	assert.False(t, st.HasClientSignature)
	require.NotNil(t, st.DesignerSignature)
	assert.JSONEq(t, `{"image":"data:png"}`, string(st.DesignerSignature.Payload))

	rec = s.do(t, http.MethodDelete, "/v1/contracts/abc123/signatures/designer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/contracts/abc123/edit-gate", "", nil)
	assert.True(t, decode[editgate.ContractDecision](t, rec).CanEdit)
}

func TestRouter_RemoteFailureOnSave(t *testing.T) {
	s := newTestServer(t, Options{})
	s.store.down = true

	rec := s.do(t, http.MethodPut, "/v1/contracts/abc123/signatures/client", `{"payload":"x"}`, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	res := decode[editgate.MutationResult](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")

	s.store.down = false
	rec = s.do(t, http.MethodGet, "/v1/contracts/abc123/signatures", "", nil)
	assert.False(t, decode[signature.State](t, rec).HasClientSignature)
}

func TestRouter_BadRequests(t *testing.T) {
	s := newTestServer(t, Options{MaxBodyBytes: 64})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown role", http.MethodPut, "/v1/contracts/c1/signatures/notary", `{"payload":1}`, http.StatusBadRequest, CodeInvalidRole},
		{"broken json", http.MethodPut, "/v1/contracts/c1/signatures/client", `{"payload":`, http.StatusBadRequest, CodeBadRequest},
		{"unknown field", http.MethodPut, "/v1/contracts/c1/signatures/client", `{"payload":1,"x":2}`, http.StatusBadRequest, CodeBadRequest},
		{"too large", http.MethodPut, "/v1/contracts/c1/signatures/client", `{"payload":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge, CodeTooLarge},
		{"no route", http.MethodGet, "/v1/nothing", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			e := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, e.Error.Code)
			assert.NotEmpty(t, e.RequestID)
		})
	}
}

func TestRouter_MissingPayload(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, body := range []string{`{}`, `{"payload":null}`, `{"payload": null }`} {
		rec := s.do(t, http.MethodPut, "/v1/contracts/c1/signatures/designer", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, decode[editgate.MutationResult](t, rec).Success, body)
	}

	rec := s.do(t, http.MethodGet, "/v1/contracts/c1/edit-gate", "", nil)
	assert.True(t, decode[editgate.ContractDecision](t, rec).CanEdit)
}

func TestRouter_CacheEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/v1/contracts/c1/signatures", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Written behind the cache's back.
	require.NoError(t, s.store.MemoryStore.WriteSignature(context.Background(), "c1", signature.RoleDesigner, json.RawMessage(`"sig"`)))

	rec = s.do(t, http.MethodGet, "/v1/contracts/c1/signatures", "", nil)
	assert.False(t, decode[signature.State](t, rec).HasDesignerSignature)

	rec = s.do(t, http.MethodPost, "/v1/contracts/c1/cache/invalidate", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/contracts/c1/signatures", "", nil)
	assert.True(t, decode[signature.State](t, rec).HasDesignerSignature)

	require.NoError(t, s.store.MemoryStore.DeleteSignature(context.Background(), "c1", signature.RoleDesigner))
	rec = s.do(t, http.MethodDelete, "/v1/cache", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/contracts/c1/signatures", "", nil)
	assert.False(t, decode[signature.State](t, rec).HasDesignerSignature)
}

func TestRouter_RequestID(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = s.do(t, http.MethodGet, "/v1/nothing", "", http.Header{RequestIDHeader: {"req-42"}})
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", decode[ErrorResponse](t, rec).RequestID)
}

func TestRouter_Health(t *testing.T) {
	agg := health.NewAggregator(time.Second)
	agg.Register(health.NewCheckerFunc("remote", func(context.Context) health.Result {
		return health.Unhealthy("down", errDown)
	}))
	s := newTestServer(t, Options{Health: agg})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestRouter_Auth(t *testing.T) {
	a, err := auth.NewJWTAuthenticator(auth.JWTConfig{Issuer: "contractsig"}, []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	s := newTestServer(t, Options{Authenticator: a})

	rec := s.do(t, http.MethodGet, "/v1/contracts/c1/signatures", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decode[ErrorResponse](t, rec).Error.Code)

	// Health endpoints stay open.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)

	token, err := a.Sign("client@example.com", []string{"client"}, time.Hour)
	require.NoError(t, err)
	bearer := http.Header{"Authorization": {"Bearer " + token}}

	rec = s.do(t, http.MethodPut, "/v1/contracts/c1/signatures/designer", `{"payload":1}`, bearer)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, decode[ErrorResponse](t, rec).Error.Code)

	rec = s.do(t, http.MethodPut, "/v1/contracts/c1/signatures/client", `{"payload":1}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/contracts/c1/edit-gate", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[editgate.ContractDecision](t, rec).CanEdit)
}
