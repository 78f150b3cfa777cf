package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/txengine/internal/usecase"
)

// ReportCache implements usecase.ReportCache using Redis.
type ReportCache struct {
	client *redis.Client
	prefix string
}

// NewReportCache creates a new ReportCache.
func NewReportCache(client *redis.Client) *ReportCache {
	return &ReportCache{
		client: client,
		prefix: "txengine:report:",
	}
}

// Get returns the report stored for runID.
func (c *ReportCache) Get(ctx context.Context, runID string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, usecase.ErrReportNotFound
	}
	return val, err
}

// Set stores a rendered report with TTL.
func (c *ReportCache) Set(ctx context.Context, runID string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+runID, value, ttl).Err()
}
