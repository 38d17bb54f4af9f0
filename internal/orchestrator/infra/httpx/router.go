package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/infra/httpx/middlewares"
)

// NewRouter mounts both entry protocols under /orchestration. metrics may be
// nil, in which case /metrics is not served.
func NewRouter(handler *Handler, metrics prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/orchestration", func(r chi.Router) {
		r.Post("/place-order", handler.PlaceOrder)
		r.Post("/soap", handler.PlaceOrderSOAP)
		r.Get("/health", handler.Health)
		r.Get("/sagas/{id}", handler.GetSaga)
	})

	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}

	return otelhttp.NewHandler(r, "orchestrator")
}
