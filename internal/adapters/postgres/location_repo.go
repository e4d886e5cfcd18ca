package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mapmarks/internal/core/domain"
)

// LocationRepo implements ports.LocationRepository with pgx.
type LocationRepo struct {
	db *DB
}

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// Write upserts a single location by guid and returns the stored row.
func (r *LocationRepo) Write(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
	entities, err := json.Marshal(loc.Entities)
	if err != nil {
		return nil, fmt.Errorf("marshal entities: %w", err)
	}

	var lat, lng *float64
	var description string
	if loc.Location != nil {
		description = loc.Location.Description
		if loc.Location.Valid {
			lat, lng = &loc.Location.Lat, &loc.Location.Lng
		}
	}

	row := r.db.Pool.QueryRow(ctx, `
		INSERT INTO map_locations (guid, account_id, map_guid, title, external_id, query, lat, lng, description, entities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (guid) DO UPDATE
		SET map_guid = EXCLUDED.map_guid, title = EXCLUDED.title,
		    external_id = EXCLUDED.external_id, query = EXCLUDED.query,
		    lat = EXCLUDED.lat, lng = EXCLUDED.lng,
		    description = EXCLUDED.description, entities = EXCLUDED.entities
		RETURNING guid, map_guid, title, external_id, query, lat, lng, description, entities, created_at
	`, loc.Guid, accountID, loc.Map, loc.Title, loc.ExternalID, loc.Query, lat, lng, description, entities)

	stored, err := scanLocation(row)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetByGuid returns one location, or nil when absent.
func (r *LocationRepo) GetByGuid(ctx context.Context, guid string) (*domain.MapLocation, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT guid, map_guid, title, external_id, query, lat, lng, description, entities, created_at
		FROM map_locations WHERE guid = $1
	`, guid)

	loc, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// ListByMap returns all locations owned by a map, stable by title.
func (r *LocationRepo) ListByMap(ctx context.Context, mapGuid string) ([]domain.MapLocation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT guid, map_guid, title, external_id, query, lat, lng, description, entities, created_at
		FROM map_locations WHERE map_guid = $1
		ORDER BY title, guid
	`, mapGuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []domain.MapLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locs = append(locs, *loc)
	}
	return locs, rows.Err()
}

// DeleteByGuid removes a single location.
func (r *LocationRepo) DeleteByGuid(ctx context.Context, guid string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM map_locations WHERE guid = $1`, guid)
	return err
}

func scanLocation(row pgx.Row) (*domain.MapLocation, error) {
	var loc domain.MapLocation
	var lat, lng *float64
	var description string
	var entities []byte

	if err := row.Scan(
		&loc.Guid, &loc.Map, &loc.Title, &loc.ExternalID, &loc.Query,
		&lat, &lng, &description, &entities, &loc.CreatedAt,
	); err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		loc.Location = domain.NewGeoPosition(*lat, *lng)
		loc.Location.Description = description
	} else if description != "" {
		loc.Location = &domain.GeoPosition{Description: description}
	}

	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &loc.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities: %w", err)
		}
	}
	return &loc, nil
}
