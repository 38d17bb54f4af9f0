package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

// CatalogService looks up the unit price of a book.
// Returns entity.ErrNotFound for unknown books and entity.ErrUnavailable for
// transport failures.
type CatalogService interface {
	LookupPrice(ctx context.Context, bookID string) (decimal.Decimal, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, customerID string, items []entity.OrderItem, total decimal.Decimal) (string, error)
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, orderID, customerID string, amount decimal.Decimal, method string) (entity.PaymentStatus, error)
}

type ShippingService interface {
	CreateShipment(ctx context.Context, orderID, customerID, address, carrier string) (string, error)
}

// OrderPlacedEvent is published once a placement workflow has completed.
type OrderPlacedEvent struct {
	SagaID         string
	OrderID        string
	CustomerID     string
	TotalAmount    decimal.Decimal
	Status         entity.PaymentStatus
	TrackingNumber string
	OccurredAt     time.Time
}

// EventPublisher fans order events out to the rest of the system.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, evt OrderPlacedEvent) error
}
