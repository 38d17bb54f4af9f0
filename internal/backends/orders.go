package backends

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderLine struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID          string          `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	Items       []OrderLine     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type createOrderRequest struct {
	CustomerID  string          `json:"customerId"`
	Items       []OrderLine     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Orders stores created orders in memory.
type Orders struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewOrders() *Orders {
	return &Orders{orders: make(map[string]*Order)}
}

func (o *Orders) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.CustomerID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customerId and items are required"})
		return
	}

	order := &Order{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
		Status:      "PENDING",
		CreatedAt:   time.Now().UTC(),
	}

	o.mu.Lock()
	o.orders[order.ID] = order
	o.mu.Unlock()

	slog.InfoContext(r.Context(), "orders: order created", "order_id", order.ID, "total", order.TotalAmount.String())
	writeJSON(w, http.StatusCreated, map[string]string{"orderId": order.ID})
}

func (o *Orders) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o.mu.RLock()
	order, ok := o.orders[id]
	var snapshot Order
	if ok {
		snapshot = *order
	}
	o.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order " + id + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Count returns the number of orders created so far.
func (o *Orders) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.orders)
}

// Lookup returns a copy of the order with the given id.
func (o *Orders) Lookup(id string) (Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.orders[id]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
