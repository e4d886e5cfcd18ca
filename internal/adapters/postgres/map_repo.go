package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mapmarks/internal/core/domain"
)

// MapRepo implements ports.MapRepository with pgx.
type MapRepo struct {
	db *DB
}

// NewMapRepo creates a new MapRepo.
func NewMapRepo(db *DB) *MapRepo {
	return &MapRepo{db: db}
}

// Upsert inserts or updates a map by guid.
func (r *MapRepo) Upsert(ctx context.Context, m *domain.Map) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO maps (guid, title, account_id, lat, lng, zoom)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guid) DO UPDATE
		SET title = EXCLUDED.title, account_id = EXCLUDED.account_id,
		    lat = EXCLUDED.lat, lng = EXCLUDED.lng, zoom = EXCLUDED.zoom
	`, m.Guid, m.Title, m.AccountID, m.Lat, m.Lng, m.Zoom)
	return err
}

// GetByGuid returns a map by guid, or nil when absent.
func (r *MapRepo) GetByGuid(ctx context.Context, guid string) (*domain.Map, error) {
	var m domain.Map
	err := r.db.Pool.QueryRow(ctx, `
		SELECT guid, title, account_id, lat, lng, zoom, created_at
		FROM maps WHERE guid = $1
	`, guid).Scan(&m.Guid, &m.Title, &m.AccountID, &m.Lat, &m.Lng, &m.Zoom, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all maps ordered by title.
func (r *MapRepo) List(ctx context.Context) ([]domain.Map, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT guid, title, account_id, lat, lng, zoom, created_at
		FROM maps ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var maps []domain.Map
	for rows.Next() {
		var m domain.Map
		if err := rows.Scan(&m.Guid, &m.Title, &m.AccountID, &m.Lat, &m.Lng, &m.Zoom, &m.CreatedAt); err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}
