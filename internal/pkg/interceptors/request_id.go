package interceptors

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors/constants"
)

// RequestIDFromContext returns the request id attached by the HTTP middleware
// or the gRPC interceptor, falling back to incoming gRPC metadata.
func RequestIDFromContext(ctx context.Context) string {
	return valueFromContext(ctx, constants.ContextKeyRequestID, constants.HeaderXRequestId)
}

// IdempotencyKeyFromContext returns the caller supplied idempotency key, or
// an empty string when the request carried none.
func IdempotencyKeyFromContext(ctx context.Context) string {
	return valueFromContext(ctx, constants.ContextKeyIdempotencyKey, constants.HeaderXIdempotencyKey)
}

// WithRequestMetadata stores the request id and idempotency key in ctx.
// Empty values are not stored.
func WithRequestMetadata(ctx context.Context, requestID, idempotencyKey string) context.Context {
	if requestID != "" {
		ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
	}
	if idempotencyKey != "" {
		ctx = context.WithValue(ctx, constants.ContextKeyIdempotencyKey, idempotencyKey)
	}
	return ctx
}

func valueFromContext(ctx context.Context, key any, mdKey string) string {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(mdKey); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
