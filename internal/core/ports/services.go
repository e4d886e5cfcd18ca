package ports

import (
	"context"

	"mapmarks/internal/core/domain"
)

// QueryTransport dispatches one batched telemetry request scoped to an
// account. The returned mapping is keyed by each descriptor's key; a key
// may be absent when its query legitimately returned no data. A transport
// failure is returned as an error, never as an empty mapping.
type QueryTransport interface {
	RunBatch(ctx context.Context, accountID int, queries []domain.QueryDescriptor) (map[string]float64, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLocationWritten(ctx context.Context, loc *domain.MapLocation) error
	PublishIngestCompleted(ctx context.Context, mapGuid string, successes, errors int) error
	PublishMarkerSelected(ctx context.Context, mapGuid, locationGuid string) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
