package ports

import (
	"context"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

// OrderPlacer is the single "submit order" entry point shared by the SOAP and
// REST adapters. Implementations must not know which protocol called them.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error)
}

// OrderPlacerFunc adapts a plain function to OrderPlacer.
type OrderPlacerFunc func(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error)

func (f OrderPlacerFunc) PlaceOrder(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error) {
	return f(ctx, req)
}
