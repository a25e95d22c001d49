// Package requestctx carries the request-scoped logger and trace metadata of the builder API.
package requestctx

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type key int

const (
	loggerKey key = iota
	traceKey
)

var nopLogger = zap.NewNop()

// TraceInfo is the trace a request belongs to. CloudProject is the Google Cloud project
// that owns the trace, not a builder project.
type TraceInfo struct {
	TraceID      string
	SpanID       string
	Sampled      bool
	CloudProject string
}

// CloudTraceName is the Cloud Logging trace resource, or "" when either part is unknown.
func (t TraceInfo) CloudTraceName() string {
	if t.CloudProject == "" || t.TraceID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", t.CloudProject, t.TraceID)
}

// WithLogger attaches logger; a nil logger is stored as a no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nopLogger
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the attached logger or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	return LoggerOr(ctx, nopLogger)
}

// LoggerOr returns the attached logger, falling back when none was attached.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nopLogger {
		return logger
	}
	return fallback
}

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(ctx, traceKey, info)
}

func Trace(ctx context.Context) (TraceInfo, bool) {
	info, ok := ctx.Value(traceKey).(TraceInfo)
	return info, ok
}

// TraceID is the current trace id, echoed in error envelopes.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}
