// Package idempotency deduplicates order placements that carry the same
// idempotency key. It wraps any ports.OrderPlacer, so the engine itself
// stays unaware of it.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/cache"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors"
)

const (
	operation     = "place-order"
	pendingMarker = "PENDING"
)

type storedResult struct {
	OrderID        string          `json:"orderId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Status         string          `json:"status"`
	TrackingNumber string          `json:"trackingNumber"`
}

// Guard replays the stored result for a key that already completed and
// rejects a key whose first placement is still running. Requests without a
// key pass straight through.
type Guard struct {
	next  ports.OrderPlacer
	cache cache.Cache
	ttl   time.Duration
}

var _ ports.OrderPlacer = (*Guard)(nil)

func NewGuard(next ports.OrderPlacer, c cache.Cache, ttl time.Duration) *Guard {
	return &Guard{next: next, cache: c, ttl: ttl}
}

func (g *Guard) PlaceOrder(ctx context.Context, req entity.OrderRequest) (entity.OrderResult, error) {
	key := interceptors.IdempotencyKeyFromContext(ctx)
	if key == "" {
		return g.next.PlaceOrder(ctx, req)
	}
	cacheKey := g.cache.GenerateKey(operation, key)

	claimed, err := g.cache.SetNX(ctx, cacheKey, pendingMarker, g.ttl)
	if err != nil {
		slog.WarnContext(ctx, "idempotency store unavailable, placing order unguarded",
			"idempotency_key", key, "error", err)
		return g.next.PlaceOrder(ctx, req)
	}
	if !claimed {
		return g.replay(ctx, key, cacheKey)
	}

	result, err := g.next.PlaceOrder(ctx, req)
	if err != nil {
		if delErr := g.cache.Del(ctx, cacheKey); delErr != nil {
			slog.WarnContext(ctx, "releasing idempotency key", "idempotency_key", key, "error", delErr)
		}
		return result, err
	}

	encoded, err := json.Marshal(storedResult{
		OrderID:        result.OrderID,
		TotalAmount:    result.TotalAmount,
		Status:         string(result.Status),
		TrackingNumber: result.TrackingNumber,
	})
	if err == nil {
		err = g.cache.Set(ctx, cacheKey, string(encoded), g.ttl)
	}
	if err != nil {
		slog.WarnContext(ctx, "storing idempotent result", "idempotency_key", key, "error", err)
	}
	return result, nil
}

func (g *Guard) replay(ctx context.Context, key, cacheKey string) (entity.OrderResult, error) {
	stored, err := g.cache.Get(ctx, cacheKey)
	if err != nil {
		return entity.OrderResult{}, fmt.Errorf("idempotency: read key %q: %w", key, err)
	}
	if stored == "" || stored == pendingMarker {
		return entity.OrderResult{}, fmt.Errorf("idempotency key %q: %w", key, entity.ErrDuplicateRequest)
	}

	var res storedResult
	if err := json.Unmarshal([]byte(stored), &res); err != nil {
		return entity.OrderResult{}, fmt.Errorf("idempotency: decode key %q: %w", key, err)
	}
	slog.InfoContext(ctx, "replaying stored order result", "idempotency_key", key, "order_id", res.OrderID)

	return entity.OrderResult{
		OrderID:        res.OrderID,
		TotalAmount:    res.TotalAmount,
		Status:         entity.PaymentStatus(res.Status),
		TrackingNumber: res.TrackingNumber,
	}, nil
}
