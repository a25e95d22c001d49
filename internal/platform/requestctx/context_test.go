package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFallsBack(t *testing.T) {
	fallback := zap.NewExample()
	if got := LoggerOr(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger on empty context")
	}
	ctx := WithLogger(context.Background(), nil)
	if got := LoggerOr(ctx, fallback); got != fallback {
		t.Fatalf("nil logger should resolve to the fallback")
	}
	if got := Logger(ctx); got == nil {
		t.Fatalf("Logger must never return nil")
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if got := Logger(ctx); got != logger {
		t.Fatalf("expected stored logger")
	}
	if got := LoggerOr(ctx, zap.NewNop()); got != logger {
		t.Fatalf("stored logger should win over fallback")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	if _, ok := Trace(context.Background()); ok {
		t.Fatalf("expected no trace on empty context")
	}
	if id := TraceID(context.Background()); id != "" {
		t.Fatalf("expected empty trace id, got %q", id)
	}
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true})
	info, ok := Trace(ctx)
	if !ok || info.SpanID != "def" || !info.Sampled {
		t.Fatalf("unexpected trace info %#v", info)
	}
	if TraceID(ctx) != "abc" {
		t.Fatalf("expected trace id abc")
	}
}

func TestCloudTraceName(t *testing.T) {
	if got := (TraceInfo{TraceID: "abc"}).CloudTraceName(); got != "" {
		t.Fatalf("expected empty name without cloud project, got %q", got)
	}
	info := TraceInfo{TraceID: "abc", CloudProject: "demo"}
	if got := info.CloudTraceName(); got != "projects/demo/traces/abc" {
		t.Fatalf("unexpected trace name %q", got)
	}
}
