package health

import (
	"context"
	"time"

	"github.com/jonwraymond/contractsig/resilience"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component works with reduced guarantees.
	StatusDegraded
	// StatusUnhealthy indicates the component is not usable.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Pinger is implemented by the remote store and the SQLite mirror.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports p unhealthy when Ping fails.
func PingCheck(name string, p Pinger) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", err)
		}
		return Healthy("reachable")
	})
}

// CircuitCheck reports a circuit breaker as degraded unless it is closed.
// A nil breaker is healthy.
func CircuitCheck(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		if cb == nil {
			return Healthy("no circuit breaker configured")
		}

		m := cb.Metrics()
		details := map[string]any{
			"state":    m.State.String(),
			"failures": m.Failures,
		}
		if !m.LastFailure.IsZero() {
			details["last_failure"] = m.LastFailure.UTC().Format(time.RFC3339)
		}

		switch m.State {
		case resilience.StateOpen:
			return Degraded("circuit open; serving reads from mirror").WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open; probing remote").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
