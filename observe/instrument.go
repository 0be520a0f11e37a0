package observe

import (
	"context"
	"time"
)

// Instrumenter wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the context passed to the wrapped function carries the span.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Instrumenter struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumenter creates an Instrumenter from its parts. Nil parts are
// replaced with no-ops.
func NewInstrumenter(tracer Tracer, metrics Metrics, logger Logger) *Instrumenter {
	if tracer == nil {
		tracer = NewTracer(NewNoopObserver().Tracer())
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrumenter{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumenterFromObserver builds an Instrumenter from an Observer.
func InstrumenterFromObserver(obs Observer) (*Instrumenter, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumenter(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopInstrumenter returns an Instrumenter that records nothing.
func NopInstrumenter() *Instrumenter {
	return NewInstrumenter(nil, nil, nil)
}

// Logger returns the base logger.
func (i *Instrumenter) Logger() Logger {
	return i.logger
}

// Metrics returns the metrics recorder.
func (i *Instrumenter) Metrics() Metrics {
	return i.metrics
}

// Run executes fn inside a span for op. Successful operations are logged at
// debug level since resolves sit on the edit hot path; failures at error.
func (i *Instrumenter) Run(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	ctx, span := i.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	i.tracer.EndSpan(span, err)
	i.metrics.RecordOperation(ctx, op, duration, err)

	logger := i.logger.WithOperation(op)
	fields := []Field{{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000}}
	if err != nil {
		logger.Error(ctx, "operation failed", append(fields, ErrorField(err))...)
	} else {
		logger.Debug(ctx, "operation completed", fields...)
	}

	return err
}
