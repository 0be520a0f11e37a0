// Package health reports whether the signature tiers are usable.
//
// A Checker reports one component. The Aggregator runs all registered
// checkers in parallel under a shared deadline and folds their results into
// one Status. Mount exposes liveness, readiness and a detailed JSON report on
// a chi router.
//
// The remote store and the mirror are checked with PingCheck. The remote
// store's circuit breaker is checked with CircuitCheck, which reports an
// open breaker as degraded rather than unhealthy: reads keep working from
// the mirror while it is open, only mutations fail.
package health
