package coordinator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

// --- PricingStep ---

// PricingStep looks up every item price and sets the order total.
// With concurrency <= 1 lookups are issued one by one in item order.
type PricingStep struct {
	catalog     ports.CatalogService
	concurrency int
}

func NewPricingStep(catalog ports.CatalogService, concurrency int) PricingStep {
	return PricingStep{catalog: catalog, concurrency: concurrency}
}

func (s PricingStep) Name() entity.Stage { return entity.StagePricing }

func (s PricingStep) Execute(ctx context.Context, wc WorkflowContext) (WorkflowContext, error) {
	prices := make([]decimal.Decimal, len(wc.Items))

	if s.concurrency <= 1 {
		for i, it := range wc.Items {
			price, err := s.catalog.LookupPrice(ctx, it.BookID)
			if err != nil {
				return wc, &entity.DownstreamFailure{Stage: entity.StagePricing, Item: it.BookID, Err: err}
			}
			prices[i] = price
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, it := range wc.Items {
			g.Go(func() error {
				price, err := s.catalog.LookupPrice(gctx, it.BookID)
				if err != nil {
					return &entity.DownstreamFailure{Stage: entity.StagePricing, Item: it.BookID, Err: err}
				}
				prices[i] = price
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return wc, err
		}
	}

	// Summed in item order regardless of how the lookups were scheduled.
	total := decimal.Zero
	for i, it := range wc.Items {
		total = total.Add(prices[i].Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	wc.TotalAmount = total
	return wc, nil
}

// --- CreateOrderStep ---

type CreateOrderStep struct {
	orders ports.OrderService
}

func NewCreateOrderStep(orders ports.OrderService) CreateOrderStep {
	return CreateOrderStep{orders: orders}
}

func (s CreateOrderStep) Name() entity.Stage { return entity.StageOrderCreation }

func (s CreateOrderStep) Execute(ctx context.Context, wc WorkflowContext) (WorkflowContext, error) {
	orderID, err := s.orders.CreateOrder(ctx, wc.CustomerID, wc.Items, wc.TotalAmount)
	if err != nil {
		return wc, &entity.DownstreamFailure{Stage: entity.StageOrderCreation, Err: err}
	}
	wc.OrderID = orderID
	return wc, nil
}

// --- PaymentStep ---

type PaymentStep struct {
	payments ports.PaymentService
}

func NewPaymentStep(payments ports.PaymentService) PaymentStep {
	return PaymentStep{payments: payments}
}

func (s PaymentStep) Name() entity.Stage { return entity.StagePayment }

func (s PaymentStep) Execute(ctx context.Context, wc WorkflowContext) (WorkflowContext, error) {
	status, err := s.payments.InitiatePayment(ctx, wc.OrderID, wc.CustomerID, wc.TotalAmount, wc.PaymentMethod)
	if err != nil {
		return wc, &entity.DownstreamFailure{Stage: entity.StagePayment, Err: err}
	}
	wc.PaymentStatus = status
	return wc, nil
}

// --- ShipmentStep ---

// ShipmentStep books a shipment once payment has settled. It runs after money
// has moved, so the engine treats its failure as non-fatal.
type ShipmentStep struct {
	shipping ports.ShippingService
	carrier  string
}

func NewShipmentStep(shipping ports.ShippingService) ShipmentStep {
	return ShipmentStep{shipping: shipping, carrier: entity.DefaultCarrier}
}

func (s ShipmentStep) Name() entity.Stage { return entity.StageShipping }

func (s ShipmentStep) ShouldRun(wc WorkflowContext) bool { return wc.PaymentStatus.Settled() }

func (s ShipmentStep) BestEffort() bool { return true }

func (s ShipmentStep) Execute(ctx context.Context, wc WorkflowContext) (WorkflowContext, error) {
	tracking, err := s.shipping.CreateShipment(ctx, wc.OrderID, wc.CustomerID, wc.ShippingAddress, s.carrier)
	if err != nil {
		return wc, &entity.DownstreamFailure{Stage: entity.StageShipping, Err: err}
	}
	if tracking == "" {
		return wc, &entity.DownstreamFailure{
			Stage: entity.StageShipping,
			Err:   fmt.Errorf("%w: empty tracking number", entity.ErrUnavailable),
		}
	}
	wc.TrackingNumber = tracking
	return wc, nil
}
