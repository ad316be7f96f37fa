package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestInitTracerInstallsGlobalProvider(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SERVICE_NAME", "stock-analysis-test")

	ctx := context.Background()
	tp, tracer, err := InitTracer(ctx)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	if tracer == nil {
		t.Fatal("expected tracer")
	}
	if otel.GetTracerProvider() != tp {
		t.Fatal("expected global tracer provider to be set")
	}

	_, span := tracer.Start(ctx, "tracing-test.span")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a sampled span with a valid context")
	}
	span.End()
}
