package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/signup-iam/internal/infra/config"
)

func TestNewTracerProviderWithoutExporter(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, config.TelemetrySettings{SamplingRate: 1}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown returned error: %v", err)
		}
	})

	_, span := tp.Tracer("test").Start(ctx, "operation")
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Fatal("expected a valid span context")
	}
	if !span.SpanContext().IsSampled() {
		t.Fatal("expected span to be sampled at rate 1")
	}
}
