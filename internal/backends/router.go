package backends

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultPaymentLimit is the largest amount the payment stand-in settles.
var DefaultPaymentLimit = decimal.NewFromInt(500)

type Services struct {
	Catalog  *Catalog
	Orders   *Orders
	Payments *Payments
	Shipping *Shipping
}

func NewServices() *Services {
	return &Services{
		Catalog:  NewCatalog(),
		Orders:   NewOrders(),
		Payments: NewPayments(DefaultPaymentLimit),
		Shipping: NewShipping(),
	}
}

// Router serves all four stand-ins from one listener, on the paths the
// orchestrator's client adapters call.
func (s *Services) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/ws", s.Catalog.ServePrice)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", s.Orders.Create)
		r.Get("/orders/{id}", s.Orders.Get)
		r.Post("/payments/initiate", s.Payments.Initiate)
		r.Post("/shippings", s.Shipping.Create)
	})

	return otelhttp.NewHandler(r, "backends")
}
