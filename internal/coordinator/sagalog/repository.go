package sagalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Reader.GetLatest for an unknown saga ID.
var ErrNotFound = errors.New("saga not found")

// Repository is the port (interface) for persisting saga log entries.
// The coordinator depends on this abstraction, not on a concrete database,
// so the SQLite, Postgres and in-memory (tests) stores are interchangeable.
type Repository interface {
	// Save persists a new log entry. Each call appends a row; the table is
	// an append-only audit log, not an upsert.
	Save(ctx context.Context, entry *SagaLog) error
}

// Reader exposes the latest known state of a saga, for the status endpoint.
type Reader interface {
	GetLatest(ctx context.Context, sagaID string) (*SagaLog, error)
}

// Store is implemented by the database backends.
type Store interface {
	Repository
	Reader
	Close() error
}
