package usecases

import (
	"context"
	"sync"
	"sync/atomic"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/ports"
	"mapmarks/internal/pkg/querykey"
)

// MarkerService turns a map's locations into rendered markers: it decides
// which locations are visible in the current viewport, dispatches one
// batched telemetry query for them, and correlates the results back onto
// each location.
type MarkerService struct {
	transport ports.QueryTransport

	// generation guards against overlapping dispatches: rapid successive
	// location-set changes are not cancelled, but a result arriving after a
	// newer dispatch has started is discarded instead of clobbering it.
	generation atomic.Uint64

	mu      sync.Mutex
	current map[string]domain.ComparisonValue
}

// NewMarkerService creates a new MarkerService.
func NewMarkerService(transport ports.QueryTransport) *MarkerService {
	return &MarkerService{transport: transport}
}

// VisibleLocations returns the subset of locations to render and query.
// Locations without finite coordinates are silently dropped. A nil bounds
// means the viewport is not initialised yet and everything else passes.
// Pure: input order is preserved and the input slice is never modified.
func (s *MarkerService) VisibleLocations(locations []domain.MapLocation, bounds *domain.Bounds) []domain.MapLocation {
	visible := make([]domain.MapLocation, 0, len(locations))
	for _, loc := range locations {
		if !loc.HasCoordinates() {
			continue
		}
		if bounds != nil && !bounds.Contains(loc.Location.Lat, loc.Location.Lng) {
			continue
		}
		visible = append(visible, loc)
	}
	return visible
}

// BuildDescriptors collects one query descriptor per location that declares
// a query. Locations without one are skipped; they resolve to "N/A" later.
func (s *MarkerService) BuildDescriptors(locations []domain.MapLocation) []domain.QueryDescriptor {
	descriptors := make([]domain.QueryDescriptor, 0, len(locations))
	for _, loc := range locations {
		if loc.Query == "" {
			continue
		}
		descriptors = append(descriptors, domain.QueryDescriptor{
			Key:   querykey.Encode(loc.Guid),
			Query: loc.Query,
		})
	}
	return descriptors
}

// ResolveComparisons dispatches the batched query for the given locations
// and returns the comparison value per guid. A location with no query, or
// whose query returned no data, resolves to "N/A". A transport failure is
// returned as a QueryDispatchError; it is never masked as "N/A".
//
// The resolved mapping also becomes the service's current set unless a
// newer dispatch started while this one was in flight.
func (s *MarkerService) ResolveComparisons(ctx context.Context, accountID int, locations []domain.MapLocation) (map[string]domain.ComparisonValue, error) {
	gen := s.generation.Add(1)

	descriptors := s.BuildDescriptors(locations)

	var results map[string]float64
	if len(descriptors) > 0 {
		var err error
		results, err = s.transport.RunBatch(ctx, accountID, descriptors)
		if err != nil {
			return nil, &domain.QueryDispatchError{AccountID: accountID, Err: err}
		}
	}

	resolved := make(map[string]domain.ComparisonValue, len(locations))
	for _, loc := range locations {
		if value, ok := results[querykey.Encode(loc.Guid)]; ok && loc.Query != "" {
			resolved[loc.Guid] = domain.Comparison(value)
		} else {
			resolved[loc.Guid] = domain.NoComparison()
		}
	}

	s.mu.Lock()
	if gen == s.generation.Load() {
		s.current = resolved
	}
	s.mu.Unlock()

	return resolved, nil
}

// Current returns the most recently applied comparison set.
func (s *MarkerService) Current() map[string]domain.ComparisonValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.ComparisonValue, len(s.current))
	for guid, v := range s.current {
		out[guid] = v
	}
	return out
}

// RenderMarkers produces the display payload for every visible location:
// viewport filtering, one batched dispatch, and per-marker status color,
// comparison value, and description.
func (s *MarkerService) RenderMarkers(ctx context.Context, accountID int, locations []domain.MapLocation, bounds *domain.Bounds, selectedGuid string) ([]domain.MarkerView, error) {
	visible := s.VisibleLocations(locations, bounds)

	comparisons, err := s.ResolveComparisons(ctx, accountID, visible)
	if err != nil {
		return nil, err
	}

	markers := make([]domain.MarkerView, 0, len(visible))
	for i := range visible {
		loc := &visible[i]

		description := "No description."
		if loc.Location.Description != "" {
			description = loc.Location.Description
		}

		markers = append(markers, domain.MarkerView{
			Guid:        loc.Guid,
			Title:       loc.Title,
			StatusColor: domain.StatusColor(loc),
			Comparison:  comparisons[loc.Guid],
			Description: description,
			Selected:    loc.Guid == selectedGuid,
			Workload:    loc.FirstWorkload(),
			Lat:         loc.Location.Lat,
			Lng:         loc.Location.Lng,
		})
	}
	return markers, nil
}
