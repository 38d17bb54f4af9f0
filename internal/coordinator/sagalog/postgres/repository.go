// Package postgres provides a Postgres-backed implementation of sagalog.Store
// for deployments that run more than one orchestrator replica.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS saga_logs (
    id              BIGSERIAL   PRIMARY KEY,
    saga_id         TEXT        NOT NULL,
    order_id        TEXT        NOT NULL DEFAULT '',
    status          TEXT        NOT NULL,
    current_step    TEXT        NOT NULL DEFAULT '',
    payload         JSONB,
    error_messages  JSONB       NOT NULL DEFAULT '[]',
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saga_logs_saga_id ON saga_logs(saga_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_saga_logs_order_id ON saga_logs(order_id);
CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id);
`

type row struct {
	SagaID        string    `db:"saga_id"`
	OrderID       string    `db:"order_id"`
	Status        string    `db:"status"`
	CurrentStep   string    `db:"current_step"`
	Payload       string    `db:"payload"`
	ErrorMessages string    `db:"error_messages"`
	TraceID       string    `db:"trace_id"`
	SpanID        string    `db:"span_id"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Repository is the Postgres implementation of sagalog.Store.
type Repository struct {
	db *sqlx.DB
}

var _ sagalog.Store = (*Repository)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	const q = `
		INSERT INTO saga_logs
			(saga_id, order_id, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(:saga_id, :order_id, :status, :current_step, CAST(NULLIF(:payload, '') AS jsonb), CAST(:error_messages AS jsonb), :trace_id, :span_id, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, q, row{
		SagaID:        entry.SagaID,
		OrderID:       entry.OrderID,
		Status:        string(entry.Status),
		CurrentStep:   entry.CurrentStep,
		Payload:       entry.Payload,
		ErrorMessages: entry.ErrorMessages,
		TraceID:       entry.TraceID,
		SpanID:        entry.SpanID,
		UpdatedAt:     entry.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("postgres: save saga log for %q: %w", entry.SagaID, err)
	}
	return nil
}

func (r *Repository) GetLatest(ctx context.Context, sagaID string) (*sagalog.SagaLog, error) {
	const q = `
		SELECT saga_id, order_id, status, current_step, COALESCE(payload::text, '') AS payload,
		       error_messages::text AS error_messages, trace_id, span_id, updated_at
		FROM   saga_logs
		WHERE  saga_id = $1
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	var rec row
	err := r.db.GetContext(ctx, &rec, q, sagaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: saga %q: %w", sagaID, sagalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get latest for %q: %w", sagaID, err)
	}

	return &sagalog.SagaLog{
		SagaID:        rec.SagaID,
		OrderID:       rec.OrderID,
		Status:        sagalog.Status(rec.Status),
		CurrentStep:   rec.CurrentStep,
		Payload:       rec.Payload,
		ErrorMessages: rec.ErrorMessages,
		TraceID:       rec.TraceID,
		SpanID:        rec.SpanID,
		UpdatedAt:     rec.UpdatedAt,
	}, nil
}
