package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation describes one signature-state operation for telemetry.
type Operation struct {
	Name       string // resolve, save_signature, remove_signature, invalidate, clear
	ContractID string // empty for process-wide operations
	Role       string // empty unless the operation targets one party
}

// SpanName returns the deterministic span name: contractsig.<name>
func (o Operation) SpanName() string {
	return "contractsig." + o.Name
}

// Attributes returns the metric attributes for the operation. Contract ids
// are only attached to spans.
func (o Operation) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("contractsig.op", o.Name)}
	if o.Role != "" {
		attrs = append(attrs, attribute.String("contractsig.role", o.Role))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := op.Attributes()
	if op.ContractID != "" {
		attrs = append(attrs, attribute.String("contractsig.contract_id", op.ContractID))
	}
	attrs = append(attrs, attribute.Bool("contractsig.error", false))

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("contractsig.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
