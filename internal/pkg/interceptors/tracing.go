package interceptors

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors/constants"
)

// TraceServerInterceptor copies the request id and idempotency key from the
// incoming metadata into the context and logs every call.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var requestID, idempotencyKey string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(constants.HeaderXRequestId); len(ids) > 0 {
				requestID = ids[0]
			}
			if ids := md.Get(constants.HeaderXIdempotencyKey); len(ids) > 0 {
				idempotencyKey = ids[0]
			}
		}
		ctx = WithRequestMetadata(ctx, requestID, idempotencyKey)

		slog.DebugContext(ctx, "grpc call", "method", info.FullMethod, "request_id", requestID)

		return handler(ctx, req)
	}
}
