package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	bad := 1.5
	if err := (Config{SampleRatio: &bad}).Validate(); err == nil {
		t.Error("expected error for sample_ratio > 1")
	}
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("Validate() on zero config = %v", err)
	}
}

func TestNewTracerProvider_Resource(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := NewTracerProvider(Config{ServiceName: "ragraft-test"}, sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	var name string
	for _, kv := range spans[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			name = kv.Value.AsString()
		}
	}
	if name != "ragraft-test" {
		t.Errorf("service.name = %q", name)
	}
}
