package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCarrier is the carrier every shipment is booked with.
const DefaultCarrier = "FedEx"

type OrderItem struct {
	BookID   string
	Quantity int
}

// OrderRequest is the protocol-neutral order submitted by an entry adapter.
// It is built once per inbound call and never mutated afterwards.
type OrderRequest struct {
	CustomerID      string
	Items           []OrderItem
	ShippingAddress string
	PaymentMethod   string
}

// NewOrderRequest validates the fields extracted by an entry adapter and
// returns an OrderRequest that owns its own copy of items.
// Every validation failure wraps ErrMalformedRequest.
func NewOrderRequest(customerID string, items []OrderItem, shippingAddress, paymentMethod string) (OrderRequest, error) {
	var missing []string
	if strings.TrimSpace(customerID) == "" {
		missing = append(missing, "customerId")
	}
	if len(items) == 0 {
		missing = append(missing, "orderItems")
	}
	if strings.TrimSpace(shippingAddress) == "" {
		missing = append(missing, "shippingAddress")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		return OrderRequest{}, fmt.Errorf("%w: missing %s", ErrMalformedRequest, strings.Join(missing, ", "))
	}

	owned := make([]OrderItem, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.BookID) == "" {
			return OrderRequest{}, fmt.Errorf("%w: item %d has no bookId", ErrMalformedRequest, i)
		}
		if it.Quantity <= 0 {
			return OrderRequest{}, fmt.Errorf("%w: item %d (%s) quantity must be greater than 0", ErrMalformedRequest, i, it.BookID)
		}
		owned[i] = it
	}

	return OrderRequest{
		CustomerID:      customerID,
		Items:           owned,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}, nil
}

// PaymentStatus is the status string reported by the payments collaborator.
// Values outside the named constants are carried through unchanged.
type PaymentStatus string

const (
	PaymentSuccess    PaymentStatus = "SUCCESS"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentProcessing PaymentStatus = "PROCESSING"
)

// Settled reports whether the payment went through and the order can ship.
func (s PaymentStatus) Settled() bool {
	return s == PaymentSuccess || s == PaymentCompleted
}

// OrderResult is the aggregated response of one order placement.
type OrderResult struct {
	OrderID        string
	TotalAmount    decimal.Decimal
	Status         PaymentStatus
	TrackingNumber string
}
