package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/ports"
)

// MapService handles map and location reads.
type MapService struct {
	maps      ports.MapRepository
	locations ports.LocationRepository
	cache     ports.CacheService
}

// NewMapService creates a new MapService.
func NewMapService(maps ports.MapRepository, locations ports.LocationRepository, cache ports.CacheService) *MapService {
	return &MapService{maps: maps, locations: locations, cache: cache}
}

// GetMap returns a map by guid.
func (s *MapService) GetMap(ctx context.Context, guid string) (*domain.Map, error) {
	if guid == "" {
		return nil, fmt.Errorf("map guid must not be empty")
	}

	cacheKey := "maps:guid:" + guid
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var m domain.Map
			if err := json.Unmarshal(data, &m); err == nil {
				return &m, nil
			}
		}
	}

	m, err := s.maps.GetByGuid(ctx, guid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return m, nil
}

// ListMaps returns all maps.
func (s *MapService) ListMaps(ctx context.Context) ([]domain.Map, error) {
	return s.maps.List(ctx)
}

// UpsertMap creates or updates a map.
func (s *MapService) UpsertMap(ctx context.Context, m *domain.Map) error {
	if m.Guid == "" || m.Title == "" {
		return fmt.Errorf("map guid and title are required")
	}
	if err := s.maps.Upsert(ctx, m); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "maps:guid:"+m.Guid)
	}
	return nil
}

// LocationsByMap returns all locations belonging to a map. Cached briefly:
// the location set changes only through ingestion commits.
func (s *MapService) LocationsByMap(ctx context.Context, mapGuid string) ([]domain.MapLocation, error) {
	cacheKey := "locations:map:" + mapGuid
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var locs []domain.MapLocation
			if err := json.Unmarshal(data, &locs); err == nil {
				return locs, nil
			}
		}
	}

	locs, err := s.locations.ListByMap(ctx, mapGuid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(locs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return locs, nil
}

// GetLocation returns one location by guid.
func (s *MapService) GetLocation(ctx context.Context, guid string) (*domain.MapLocation, error) {
	return s.locations.GetByGuid(ctx, guid)
}

// DeleteLocation removes a location and invalidates its map's cache entry.
func (s *MapService) DeleteLocation(ctx context.Context, guid string) error {
	loc, err := s.locations.GetByGuid(ctx, guid)
	if err != nil {
		return err
	}
	if err := s.locations.DeleteByGuid(ctx, guid); err != nil {
		return err
	}
	if s.cache != nil && loc != nil {
		_ = s.cache.Delete(ctx, "locations:map:"+loc.Map)
	}
	return nil
}

// InvalidateMapLocations drops the cached location list after an ingestion
// commit so the next markers read sees the new records.
func (s *MapService) InvalidateMapLocations(ctx context.Context, mapGuid string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "locations:map:"+mapGuid)
	}
}
