package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata stores chi's request id and the caller's idempotency
// key in the request context and echoes the request id back.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := strings.TrimSpace(r.Header.Get(constants.HeaderXIdempotencyKey))

		if requestID != "" {
			w.Header().Set(constants.HeaderXRequestId, requestID)
		}
		ctx := interceptors.WithRequestMetadata(r.Context(), requestID, idempotencyKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
