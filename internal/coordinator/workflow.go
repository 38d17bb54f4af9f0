package coordinator

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

// WorkflowContext is the running state of one order placement. It is passed
// and returned by value: a step receives the current context and returns the
// next one, so no two executions (or steps) ever share mutable state.
// Items is never written to after construction.
type WorkflowContext struct {
	CustomerID      string
	Items           []entity.OrderItem
	ShippingAddress string
	PaymentMethod   string

	TotalAmount    decimal.Decimal
	OrderID        string
	PaymentStatus  entity.PaymentStatus
	TrackingNumber string
}

// NewWorkflowContext seeds a context from an inbound request with a zero total.
func NewWorkflowContext(req entity.OrderRequest) WorkflowContext {
	return WorkflowContext{
		CustomerID:      req.CustomerID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     decimal.Zero,
	}
}

// Result derives the aggregated response from a terminal context.
func (wc WorkflowContext) Result() entity.OrderResult {
	return entity.OrderResult{
		OrderID:        wc.OrderID,
		TotalAmount:    wc.TotalAmount,
		Status:         wc.PaymentStatus,
		TrackingNumber: wc.TrackingNumber,
	}
}
