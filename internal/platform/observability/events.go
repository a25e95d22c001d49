package observability

import (
	"context"
	"sort"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// EventLogger adapts a zap logger to the event hook services report through.
// Events carrying an "error" field are logged at warn level.
func EventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		zfields := make([]zap.Field, 0, len(keys)+2)
		zfields = append(zfields, zap.String("event", event))
		if id := middleware.GetReqID(ctx); id != "" {
			zfields = append(zfields, zap.String("request_id", id))
		}
		_, failed := fields["error"]
		for _, key := range keys {
			zfields = append(zfields, zap.Any(key, fields[key]))
		}
		if failed {
			logger.Warn(event, zfields...)
			return
		}
		logger.Info(event, zfields...)
	}
}
