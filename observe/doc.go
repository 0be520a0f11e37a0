// Package observe provides logging, metrics and tracing for signature-state
// operations.
//
// It is a pure instrumentation library. Consumers build an Observer from
// Config, derive an Instrumenter from it, and run each operation through
// Instrumenter.Run so every resolve and mutation gets a span, a duration
// histogram sample, counters, and a structured log line.
package observe
