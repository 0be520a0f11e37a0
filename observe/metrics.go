package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one operation with its duration and outcome.
	RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordResolve records which tier answered a resolve: cache, remote,
	// mirror or default.
	RecordResolve(ctx context.Context, source string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	sourceCount  metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"contractsig.op.total",
		metric.WithDescription("Total number of signature-state operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"contractsig.op.errors",
		metric.WithDescription("Total number of failed signature-state operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"contractsig.op.duration_ms",
		metric.WithDescription("Signature-state operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sourceCount, err := meter.Int64Counter(
		"contractsig.resolve.source",
		metric.WithDescription("Resolved signature states by answering tier"),
		metric.WithUnit("{resolve}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		sourceCount:  sourceCount,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.Attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordResolve(ctx context.Context, source string) {
	m.sourceCount.Add(ctx, 1, metric.WithAttributes(attribute.String("contractsig.source", source)))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordOperation(context.Context, Operation, time.Duration, error) {}
func (nopMetrics) RecordResolve(context.Context, string)                           {}
