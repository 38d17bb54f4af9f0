package backends

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Shipment struct {
	OrderID         string
	CustomerID      string
	ShippingAddress string
	Carrier         string
	TrackingNumber  string
}

// Shipping books shipments from form-encoded requests.
type Shipping struct {
	mu        sync.Mutex
	shipments map[string]Shipment
	down      bool
}

func NewShipping() *Shipping {
	return &Shipping{shipments: make(map[string]Shipment)}
}

// SetDown makes every subsequent request fail with 503.
func (s *Shipping) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *Shipping) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	orderID := r.PostForm.Get("orderId")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "shipping unavailable"})
		return
	}

	shipment := Shipment{
		OrderID:         orderID,
		CustomerID:      r.PostForm.Get("customerId"),
		ShippingAddress: r.PostForm.Get("shippingAddress"),
		Carrier:         r.PostForm.Get("carrier"),
		TrackingNumber:  "TRK-" + strings.ToUpper(uuid.NewString()[:8]),
	}
	s.shipments[orderID] = shipment

	slog.InfoContext(r.Context(), "shipping: shipment booked", "order_id", orderID, "carrier", shipment.Carrier)
	writeJSON(w, http.StatusCreated, map[string]string{"trackingNumber": shipment.TrackingNumber})
}

func (s *Shipping) Lookup(orderID string) (Shipment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[orderID]
	return sh, ok
}

func (s *Shipping) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shipments)
}
