package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

// Step represents a single unit of work in the order placement saga.
// Execute receives the current context and returns the next one; it never
// modifies shared state.
type Step interface {
	Name() entity.Stage
	Execute(ctx context.Context, wc WorkflowContext) (WorkflowContext, error)
}

// conditionalStep is implemented by steps that only run on some paths.
type conditionalStep interface {
	ShouldRun(wc WorkflowContext) bool
}

// bestEffortStep is implemented by steps whose failure must not abort the
// workflow. Nothing that already happened is compensated.
type bestEffortStep interface {
	BestEffort() bool
}

// Options configures the optional collaborators of an Engine. Every field may
// be left zero.
type Options struct {
	// PricingConcurrency > 1 issues price lookups concurrently.
	PricingConcurrency int
	SagaLog            sagalog.Repository
	Publisher          ports.EventPublisher
	Metrics            *Metrics
}

// Engine runs the fixed order placement sequence: pricing, order creation,
// payment and, when payment settled, shipment. It holds no per-request state
// and is safe for concurrent use.
type Engine struct {
	steps     []Step
	sagaLog   sagalog.Repository // nil-safe: logging skipped if nil
	publisher ports.EventPublisher
	metrics   *Metrics
	tracer    trace.Tracer
}

var _ ports.OrderPlacer = (*Engine)(nil)

func NewEngine(
	catalog ports.CatalogService,
	orders ports.OrderService,
	payments ports.PaymentService,
	shipping ports.ShippingService,
	opts Options,
) *Engine {
	return &Engine{
		steps: []Step{
			NewPricingStep(catalog, opts.PricingConcurrency),
			NewCreateOrderStep(orders),
			NewPaymentStep(payments),
			NewShipmentStep(shipping),
		},
		sagaLog:   opts.SagaLog,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		tracer:    otel.Tracer("github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator"),
	}
}

// PlaceOrder implements ports.OrderPlacer.
func (e *Engine) PlaceOrder(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error) {
	return e.Execute(ctx, req)
}

// Execute runs one placement from a fresh WorkflowContext. The first failing
// required step aborts the run and nothing after it is invoked.
func (e *Engine) Execute(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error) {
	sagaID := SagaIDFromContext(ctx)
	if sagaID == "" {
		sagaID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("saga.id", sagaID),
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.items", len(req.Items)),
	))
	defer span.End()

	logger := slog.With("saga_id", sagaID, "customer_id", req.CustomerID)
	logger.InfoContext(ctx, "starting order placement", "items", len(req.Items))
	e.record(ctx, sagaID, "", sagalog.StatusStarted, "", encodePayload(req), nil)

	wc := NewWorkflowContext(req)

	for _, step := range e.steps {
		stage := step.Name()

		if c, ok := step.(conditionalStep); ok && !c.ShouldRun(wc) {
			logger.InfoContext(ctx, "step skipped", "stage", stage, "order_id", wc.OrderID, "payment_status", wc.PaymentStatus)
			e.record(ctx, sagaID, wc.OrderID, sagalog.StatusStepSkipped, string(stage), "", nil)
			continue
		}

		logger.DebugContext(ctx, "step started", "stage", stage, "order_id", wc.OrderID)
		next, err := e.runStep(ctx, step, wc)
		if err != nil {
			if b, ok := step.(bestEffortStep); ok && b.BestEffort() {
				logger.WarnContext(ctx, "step failed after payment, continuing without it",
					"stage", stage, "order_id", wc.OrderID, "error", err)
				e.record(ctx, sagaID, wc.OrderID, sagalog.StatusStepFailed, string(stage), "", []string{err.Error()})
				if stage == entity.StageShipping {
					e.metrics.shipmentFailed()
				}
				continue
			}

			logger.ErrorContext(ctx, "order placement aborted", "stage", stage, "order_id", wc.OrderID, "error", err)
			e.record(ctx, sagaID, wc.OrderID, sagalog.StatusFailed, string(stage), "", []string{err.Error()})
			e.metrics.sagaFinished("failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return entity.OrderResult{}, err
		}

		wc = next
		logger.InfoContext(ctx, "step finished", "stage", stage, "order_id", wc.OrderID)
		e.record(ctx, sagaID, wc.OrderID, sagalog.StatusStepDone, string(stage), "", nil)
	}

	result := wc.Result()
	span.SetAttributes(
		attribute.String("order.id", result.OrderID),
		attribute.String("payment.status", string(result.Status)),
	)
	logger.InfoContext(ctx, "order placement completed",
		"order_id", result.OrderID,
		"total_amount", result.TotalAmount.String(),
		"status", result.Status,
		"tracking_number", result.TrackingNumber,
	)
	e.record(ctx, sagaID, result.OrderID, sagalog.StatusCompleted, "", "", nil)
	e.metrics.sagaFinished("completed")
	e.publish(ctx, sagaID, req.CustomerID, result)

	return result, nil
}

func (e *Engine) runStep(ctx context.Context, step Step, wc WorkflowContext) (WorkflowContext, error) {
	ctx, span := e.tracer.Start(ctx, "step."+string(step.Name()))
	defer span.End()

	started := time.Now()
	next, err := step.Execute(ctx, wc)
	e.metrics.observeStep(step.Name(), started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return next, err
}

// record appends a saga log entry. A failing log write never fails the saga.
func (e *Engine) record(ctx context.Context, sagaID, orderID string, status sagalog.Status, step, payload string, errs []string) {
	if e.sagaLog == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, sagaID, status, step, payload, errs)
	entry.OrderID = orderID
	if err := e.sagaLog.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to write saga log", "saga_id", sagaID, "status", status, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, sagaID, customerID string, result entity.OrderResult) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.PublishOrderPlaced(ctx, ports.OrderPlacedEvent{
		SagaID:         sagaID,
		OrderID:        result.OrderID,
		CustomerID:     customerID,
		TotalAmount:    result.TotalAmount,
		Status:         result.Status,
		TrackingNumber: result.TrackingNumber,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish order placed event", "saga_id", sagaID, "order_id", result.OrderID, "error", err)
	}
}

type payloadItem struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type payload struct {
	CustomerID      string        `json:"customerId"`
	OrderItems      []payloadItem `json:"orderItems"`
	ShippingAddress string        `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
}

// encodePayload serialises the request stored with the STARTED entry.
func encodePayload(req entity.OrderRequest) string {
	p := payload{
		CustomerID:      req.CustomerID,
		OrderItems:      make([]payloadItem, len(req.Items)),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	for i, it := range req.Items {
		p.OrderItems[i] = payloadItem{BookID: it.BookID, Quantity: it.Quantity}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

type sagaIDKey struct{}

// WithSagaID lets the caller choose the saga id, e.g. to return it in a
// response header before the workflow starts.
func WithSagaID(ctx context.Context, sagaID string) context.Context {
	return context.WithValue(ctx, sagaIDKey{}, sagaID)
}

func SagaIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sagaIDKey{}).(string)
	return id
}

// IsDownstreamFailure reports whether err aborted the workflow at a
// downstream stage, returning that stage.
func IsDownstreamFailure(err error) (entity.Stage, bool) {
	var df *entity.DownstreamFailure
	if errors.As(err, &df) {
		return df.Stage, true
	}
	return "", false
}
