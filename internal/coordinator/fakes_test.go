package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

type call struct {
	op    string
	key   string
	price decimal.Decimal
	args  []string
}

// recorder is a call log shared by every fake downstream service.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) ops(op string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) sequence() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.op
	}
	return out
}

type fakeCatalog struct {
	rec    *recorder
	prices map[string]string
	errs   map[string]error
}

func (f *fakeCatalog) LookupPrice(ctx context.Context, bookID string) (decimal.Decimal, error) {
	if err, ok := f.errs[bookID]; ok {
		f.rec.add(call{op: "price", key: bookID})
		return decimal.Zero, err
	}
	raw, ok := f.prices[bookID]
	if !ok {
		f.rec.add(call{op: "price", key: bookID})
		return decimal.Zero, entity.ErrNotFound
	}
	price := decimal.RequireFromString(raw)
	f.rec.add(call{op: "price", key: bookID, price: price})
	return price, nil
}

type fakeOrders struct {
	rec     *recorder
	orderID string
	err     error
	items   [][]entity.OrderItem
	totals  []decimal.Decimal
	mu      sync.Mutex
}

func (f *fakeOrders) CreateOrder(ctx context.Context, customerID string, items []entity.OrderItem, total decimal.Decimal) (string, error) {
	f.rec.add(call{op: "create-order", key: customerID, price: total})
	f.mu.Lock()
	f.items = append(f.items, items)
	f.totals = append(f.totals, total)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.orderID != "" {
		return f.orderID, nil
	}
	return "ORD-" + customerID, nil
}

type fakePayments struct {
	rec    *recorder
	status entity.PaymentStatus
	err    error
}

func (f *fakePayments) InitiatePayment(ctx context.Context, orderID, customerID string, amount decimal.Decimal, method string) (entity.PaymentStatus, error) {
	f.rec.add(call{op: "payment", key: orderID, price: amount, args: []string{customerID, method}})
	if f.err != nil {
		return "", f.err
	}
	return f.status, nil
}

type fakeShipping struct {
	rec      *recorder
	tracking string
	err      error
}

func (f *fakeShipping) CreateShipment(ctx context.Context, orderID, customerID, address, carrier string) (string, error) {
	f.rec.add(call{op: "shipment", key: orderID, args: []string{customerID, address, carrier}})
	if f.err != nil {
		return "", f.err
	}
	return f.tracking, nil
}

type memorySagaLog struct {
	mu      sync.Mutex
	entries []*sagalog.SagaLog
	err     error
}

func (m *memorySagaLog) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memorySagaLog) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = string(e.Status) + ":" + e.CurrentStep
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ports.OrderPlacedEvent
	err    error
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, evt ports.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}

var errBoom = errors.New("boom")

type fixture struct {
	rec      *recorder
	catalog  *fakeCatalog
	orders   *fakeOrders
	payments *fakePayments
	shipping *fakeShipping
}

func newFixture() *fixture {
	rec := &recorder{}
	return &fixture{
		rec:      rec,
		catalog:  &fakeCatalog{rec: rec, prices: map[string]string{"B1": "9.99", "B2": "15.50", "B3": "0.10"}},
		orders:   &fakeOrders{rec: rec},
		payments: &fakePayments{rec: rec, status: entity.PaymentSuccess},
		shipping: &fakeShipping{rec: rec, tracking: "TRK-123"},
	}
}

func (f *fixture) engine(opts Options) *Engine {
	return NewEngine(f.catalog, f.orders, f.payments, f.shipping, opts)
}
