package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors"
)

type memoryCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failNX  error
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNX != nil {
		return false, m.failNX
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryCache) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }
func (m *memoryCache) Close() error                   { return nil }

type countingPlacer struct {
	mu     sync.Mutex
	calls  int
	err    error
	block  chan struct{}
	result entity.OrderResult
}

func (p *countingPlacer) PlaceOrder(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return entity.OrderResult{}, p.err
	}
	res := p.result
	res.OrderID = fmt.Sprintf("%s-%d", res.OrderID, n)
	return res, nil
}

func (p *countingPlacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newPlacer() *countingPlacer {
	return &countingPlacer{result: entity.OrderResult{
		OrderID:        "ORD",
		TotalAmount:    decimal.RequireFromString("19.98"),
		Status:         entity.PaymentSuccess,
		TrackingNumber: "TRK-1",
	}}
}

func withKey(key string) context.Context {
	return interceptors.WithRequestMetadata(context.Background(), "req", key)
}

var order = entity.OrderRequest{CustomerID: "C1", Items: []entity.OrderItem{{BookID: "B1", Quantity: 2}}, ShippingAddress: "X", PaymentMethod: "CARD"}

func TestGuard_NoKeyPassesThrough(t *testing.T) {
	placer := newPlacer()
	c := newMemoryCache()
	g := NewGuard(placer, c, time.Hour)

	first, err := g.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	second, err := g.PlaceOrder(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, 2, placer.count())
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Empty(t, c.data)
}

func TestGuard_ReplaysCompletedResult(t *testing.T) {
	placer := newPlacer()
	c := newMemoryCache()
	g := NewGuard(placer, c, time.Hour)

	first, err := g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)
	second, err := g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)

	assert.Equal(t, 1, placer.count())
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.TrackingNumber, second.TrackingNumber)
	assert.Equal(t, time.Hour, c.ttls["test:place-order:k1"])
}

func TestGuard_DifferentKeysAreIndependent(t *testing.T) {
	placer := newPlacer()
	g := NewGuard(placer, newMemoryCache(), time.Hour)

	_, err := g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)
	_, err = g.PlaceOrder(withKey("k2"), order)
	require.NoError(t, err)

	assert.Equal(t, 2, placer.count())
}

func TestGuard_RejectsDuplicateInFlight(t *testing.T) {
	placer := newPlacer()
	placer.block = make(chan struct{})
	g := NewGuard(placer, newMemoryCache(), time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := g.PlaceOrder(withKey("k1"), order)
		done <- err
	}()

	require.Eventually(t, func() bool { return placer.count() == 1 }, time.Second, time.Millisecond)

	_, err := g.PlaceOrder(withKey("k1"), order)
	assert.True(t, errors.Is(err, entity.ErrDuplicateRequest), "got %v", err)

	close(placer.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, placer.count())
}

func TestGuard_FailureReleasesKey(t *testing.T) {
	placer := newPlacer()
	placer.err = &entity.DownstreamFailure{Stage: entity.StagePayment, Err: entity.ErrUnavailable}
	c := newMemoryCache()
	g := NewGuard(placer, c, time.Hour)

	_, err := g.PlaceOrder(withKey("k1"), order)
	require.Error(t, err)
	assert.Equal(t, []string{"test:place-order:k1"}, c.deleted)

	placer.err = nil
	res, err := g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", res.OrderID)
}

func TestGuard_StoreUnavailablePlacesUnguarded(t *testing.T) {
	placer := newPlacer()
	c := newMemoryCache()
	c.failNX = errors.New("connection refused")
	g := NewGuard(placer, c, time.Hour)

	_, err := g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)
	_, err = g.PlaceOrder(withKey("k1"), order)
	require.NoError(t, err)

	assert.Equal(t, 2, placer.count())
}
