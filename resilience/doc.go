// Package resilience protects calls to the durable remote store.
//
// Three patterns compose through an Executor:
//
//   - Timeout bounds each attempt so a hung connection surfaces as an error
//     the reconciler can fall back on.
//
//   - Retry re-attempts transient failures with exponential, linear or
//     constant backoff.
//
//   - Circuit Breaker stops calling a remote store that keeps failing, so
//     edit-gate checks degrade to the device mirror immediately instead of
//     waiting out a timeout on every cache miss.
//
// Errors wrapped with Permanent are returned at once: they are not retried
// and do not count as breaker failures.
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return store.WriteSignature(ctx, id, role, payload)
//	})
package resilience
