package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/contractsig/resilience"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(42):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck("remote", pingFunc(func(context.Context) error { return nil }))
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("healthy ping: got %v", r.Status)
	}

	boom := errors.New("connection refused")
	bad := PingCheck("remote", pingFunc(func(context.Context) error { return boom }))
	r := bad.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, boom) {
		t.Errorf("failing ping: got %v / %v", r.Status, r.Error)
	}
	if bad.Name() != "remote" {
		t.Errorf("Name = %q", bad.Name())
	}
}

func TestCircuitCheck(t *testing.T) {
	if r := CircuitCheck("circuit", nil).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("nil breaker: got %v", r.Status)
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	check := CircuitCheck("circuit", cb)

	if r := check.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("closed breaker: got %v", r.Status)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	r := check.Check(context.Background())
	if r.Status != StatusDegraded {
		t.Errorf("open breaker: got %v, want degraded", r.Status)
	}
	if r.Details["state"] != "open" {
		t.Errorf("details state = %v", r.Details["state"])
	}
	if _, ok := r.Details["last_failure"]; !ok {
		t.Error("expected last_failure detail")
	}
}

func TestAggregator_RegisterKeepsOrder(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register(NewCheckerFunc("remote", func(context.Context) Result { return Healthy("") }))
	agg.Register(NewCheckerFunc("mirror", func(context.Context) Result { return Healthy("") }))
	agg.Register(NewCheckerFunc("remote", func(context.Context) Result { return Degraded("") }))

	names := agg.Names()
	if len(names) != 2 || names[0] != "remote" || names[1] != "mirror" {
		t.Errorf("Names = %v", names)
	}
	if r, _ := agg.Check(context.Background(), "remote"); r.Status != StatusDegraded {
		t.Error("re-registering should replace the checker")
	}
}

func TestAggregator_CheckUnknown(t *testing.T) {
	if _, err := NewAggregator(0).Check(context.Background(), "nope"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	agg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("late")
	}))

	r := agg.CheckAll(context.Background())["slow"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("got %v / %v", r.Status, r.Error)
	}
}

func TestOverall(t *testing.T) {
	if Overall(nil) != StatusHealthy {
		t.Error("empty results should be healthy")
	}
	results := map[string]Result{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
	}
	if Overall(results) != StatusDegraded {
		t.Error("expected degraded")
	}
	results["c"] = Result{Status: StatusUnhealthy}
	if Overall(results) != StatusUnhealthy {
		t.Error("expected unhealthy")
	}
}

func TestMount(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(NewCheckerFunc("remote", func(context.Context) Result { return Healthy("reachable") }))
	agg.Register(NewCheckerFunc("circuit", func(context.Context) Result { return Degraded("circuit open") }))

	r := chi.NewRouter()
	Mount(r, agg)
	srv := httptest.NewServer(r)
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp, string(body)
	}

	if resp, body := get("/healthz"); resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("/healthz = %d %q", resp.StatusCode, body)
	}
	if resp, body := get("/readyz"); resp.StatusCode != http.StatusOK || body != "DEGRADED" {
		t.Errorf("/readyz = %d %q", resp.StatusCode, body)
	}

	resp, body := get("/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
	var report Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, body)
	}
	if report.Status != "degraded" || len(report.Checks) != 2 {
		t.Errorf("report = %+v", report)
	}
	if report.Checks["remote"].Message != "reachable" {
		t.Errorf("remote check = %+v", report.Checks["remote"])
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(PingCheck("remote", pingFunc(func(context.Context) error { return errors.New("down") })))

	rec := httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "UNHEALTHY" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
