package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type traceIDKey struct{}

// InjectTraceID attaches a fresh trace id to ctx and to the zerolog logger carried by it.
func InjectTraceID(ctx context.Context) context.Context {
	return InjectTraceIDWithValue(ctx, uuid.New().String())
}

// InjectTraceIDWithValue reuses an upstream id, e.g. the http request id or a queue message id.
func InjectTraceIDWithValue(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	logger := log.With().Str("traceId", id).Logger()
	ctx = context.WithValue(ctx, traceIDKey{}, id)
	return logger.WithContext(ctx)
}

// TraceID returns the id injected into ctx, or an empty string.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
