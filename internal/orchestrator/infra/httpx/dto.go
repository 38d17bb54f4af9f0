package httpx

import (
	"encoding/json"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

type PlaceOrderRequest struct {
	CustomerID      string         `json:"customerId"`
	OrderItems      []OrderItemDTO `json:"orderItems"`
	ShippingAddress string         `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
}

type OrderItemDTO struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type OrderResultResponse struct {
	OrderID        string      `json:"orderId"`
	TotalAmount    json.Number `json:"totalAmount"`
	Status         string      `json:"status"`
	TrackingNumber string      `json:"trackingNumber"`
}

type SagaStatusResponse struct {
	SagaID      string   `json:"sagaId"`
	OrderID     string   `json:"orderId,omitempty"`
	Status      string   `json:"status"`
	CurrentStep string   `json:"currentStep,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	TraceID     string   `json:"traceId,omitempty"`
	UpdatedAt   string   `json:"updatedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (r PlaceOrderRequest) toEntity() (entity.OrderRequest, error) {
	items := make([]entity.OrderItem, len(r.OrderItems))
	for i, it := range r.OrderItems {
		items[i] = entity.OrderItem{BookID: it.BookID, Quantity: it.Quantity}
	}
	return entity.NewOrderRequest(r.CustomerID, items, r.ShippingAddress, r.PaymentMethod)
}

func mapResultToResponse(res entity.OrderResult) OrderResultResponse {
	return OrderResultResponse{
		OrderID:        res.OrderID,
		TotalAmount:    json.Number(res.TotalAmount.String()),
		Status:         string(res.Status),
		TrackingNumber: res.TrackingNumber,
	}
}
