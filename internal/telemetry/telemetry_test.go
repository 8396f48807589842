package telemetry

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), false, "claimflow", "test", nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("expected no-op span")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitEnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), true, "claimflow", "test", &buf)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _, _ = Init(context.Background(), false, "", "", nil) })

	_, span := otel.Tracer("test").Start(context.Background(), "claimflow.test_span")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("claimflow.test_span")) {
		t.Fatalf("span not exported: %s", buf.String())
	}
}
