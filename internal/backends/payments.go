package backends

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"
)

type initiatePaymentRequest struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// Payments settles every payment up to a limit and declines the rest with
// status FAILED.
type Payments struct {
	mu       sync.Mutex
	limit    decimal.Decimal
	payments map[string]decimal.Decimal
}

func NewPayments(limit decimal.Decimal) *Payments {
	return &Payments{limit: limit, payments: make(map[string]decimal.Decimal)}
}

func (p *Payments) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Amount.GreaterThan(p.limit) {
		slog.InfoContext(r.Context(), "payments: declined", "order_id", req.OrderID, "amount", req.Amount.String())
		writeJSON(w, http.StatusOK, map[string]string{"status": "FAILED"})
		return
	}

	p.payments[req.OrderID] = req.Amount
	slog.InfoContext(r.Context(), "payments: charged", "order_id", req.OrderID, "amount", req.Amount.String())
	writeJSON(w, http.StatusOK, map[string]string{"status": "SUCCESS"})
}

// Charged returns the amount charged for an order.
func (p *Payments) Charged(orderID string) (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	amount, ok := p.payments[orderID]
	return amount, ok
}
