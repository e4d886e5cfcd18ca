package ports

import (
	"context"

	"mapmarks/internal/core/domain"
)

// MapRepository persists maps.
type MapRepository interface {
	Upsert(ctx context.Context, m *domain.Map) error
	GetByGuid(ctx context.Context, guid string) (*domain.Map, error)
	List(ctx context.Context) ([]domain.Map, error)
}

// LocationRepository persists map locations. Write is one call per record
// with no implicit batching; the ingestion pipeline fans out its own
// concurrent writes on top of it.
type LocationRepository interface {
	Write(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error)
	GetByGuid(ctx context.Context, guid string) (*domain.MapLocation, error)
	ListByMap(ctx context.Context, mapGuid string) ([]domain.MapLocation, error)
	DeleteByGuid(ctx context.Context, guid string) error
}
