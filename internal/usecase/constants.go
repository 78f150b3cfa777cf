package usecase

import "time"

const (
	// DefaultExportTimeout bounds the time spent delivering one run to all
	// exporters.
	DefaultExportTimeout = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyProcessing is stored under an idempotency key while its
	// first request is still running.
	IdempotencyProcessing = "processing"
)
