package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if exp != nil {
			t.Errorf("%q: expected nil exporter", name)
		}
	}
}

func TestNewTracingExporter_Stdout(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp == nil {
		t.Fatal("expected exporter")
	}
	_ = exp.Shutdown(context.Background())
}

func TestNewTracingExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if _, err := NewTracingExporter(context.Background(), "otlp"); err == nil {
		t.Error("expected error without endpoint")
	}
}

func TestNewTracingExporter_JaegerRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")
	if _, err := NewTracingExporter(context.Background(), "jaeger"); err == nil {
		t.Error("expected error without endpoint")
	}
}

func TestNewTracingExporter_Unknown(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "zipkin"); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestNewMetricsReader_None(t *testing.T) {
	r, err := NewMetricsReader(context.Background(), "none")
	if err != nil || r != nil {
		t.Errorf("expected nil reader and nil error, got %v, %v", r, err)
	}
}

func TestNewMetricsReader_Prometheus(t *testing.T) {
	r, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected reader")
	}
}

func TestNewMetricsReader_Stdout(t *testing.T) {
	r, err := NewMetricsReader(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = r.Shutdown(context.Background())
}

func TestNewMetricsReader_Unknown(t *testing.T) {
	if _, err := NewMetricsReader(context.Background(), "statsd"); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
