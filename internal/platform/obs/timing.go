package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rebalance-route-service/internal/platform/metrics"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id in ctx and on the context logger.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, reqID)
	l := zerolog.Ctx(ctx).With().Str("req_id", reqID).Logger()
	return l.WithContext(ctx)
}

// Time logs the duration of an operation through the context logger (which carries
// req_id when set by WithRequestID) and records it in the operation histogram.
// Usage: defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)
		l := zerolog.Ctx(ctx)

		if errp != nil && *errp != nil {
			metrics.OperationDuration.WithLabelValues(name, "error").Observe(dur.Seconds())
			l.Warn().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Err(*errp).Msg("operation failed")
			return
		}
		metrics.OperationDuration.WithLabelValues(name, "ok").Observe(dur.Seconds())
		l.Debug().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("operation done")
	}
}
