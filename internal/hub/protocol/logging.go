package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// LoggingMiddleware records method name, duration, and outcome for every
// dispatched call.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, params json.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, params)
			duration := time.Since(start)
			if err != nil {
				slog.Warn("protocol: call failed", "duration", duration, "err", err)
			} else {
				slog.Debug("protocol: call succeeded", "duration", duration)
			}
			return result, err
		}
	}
}
