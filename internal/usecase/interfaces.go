package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/txengine/internal/domain"
)

// RecordSource yields transactions in arrival order.
//
// Next returns io.EOF once the source is drained. An error wrapping
// domain.ErrMalformedRecord marks a single bad record; the source stays
// usable and the caller moves on to the next record. Any other error is fatal
// for the source.
type RecordSource interface {
	Next(ctx context.Context) (domain.Transaction, error)
}

// SnapshotExporter delivers the final account table of a run somewhere.
type SnapshotExporter interface {
	Export(ctx context.Context, report *domain.RunReport) error
}

// SnapshotRepository persists and reads back exported account tables.
type SnapshotRepository interface {
	SnapshotExporter
	ListByRun(ctx context.Context, runID string) ([]domain.AccountSnapshot, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// ErrReportNotFound is returned by a ReportCache for unknown or expired runs.
var ErrReportNotFound = errors.New("report not found")

// ReportCache keeps rendered run reports for later retrieval.
type ReportCache interface {
	Get(ctx context.Context, runID string) ([]byte, error)
	Set(ctx context.Context, runID string, value []byte, ttl time.Duration) error
}
