package workflows

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/usecases"
)

// ImportActivities holds the activity implementations for the bulk import
// workflow.
type ImportActivities struct {
	Ingestion *usecases.IngestionService
	Maps      *usecases.MapService
}

// LoadResult carries the read/validate outcome across the activity boundary.
type LoadResult struct {
	Records       []domain.MapLocation
	RejectedFiles int
	Rejections    []string
}

// PersistResult carries the write outcome counts.
type PersistResult struct {
	Successes int
	Errors    int
}

// LoadFiles reads and validates the files at the given paths.
func (a *ImportActivities) LoadFiles(ctx context.Context, paths []string) (*LoadResult, error) {
	sources := make([]domain.FileSource, 0, len(paths))
	for _, p := range paths {
		p := p
		sources = append(sources, domain.FileSource{
			Name: filepath.Base(p),
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}

	result := a.Ingestion.LoadFiles(ctx, sources)

	out := &LoadResult{
		Records:       result.FileData,
		RejectedFiles: len(result.FileErrors),
	}
	for _, fe := range result.FileErrors {
		out.Rejections = append(out.Rejections, fmt.Sprintf("%s: %v", fe.File, fe.Err))
	}
	return out, nil
}

// PersistRecords writes every record and returns the partition counts.
func (a *ImportActivities) PersistRecords(ctx context.Context, accountID int, mapGuid string, records []domain.MapLocation) (*PersistResult, error) {
	partition, err := a.Ingestion.PersistAll(ctx, accountID, mapGuid, records)
	if err != nil {
		return nil, fmt.Errorf("persist records: %w", err)
	}
	successes, errors := partition.Counts()
	return &PersistResult{Successes: successes, Errors: errors}, nil
}

// InvalidateLocationCache drops the cached location list for a map.
func (a *ImportActivities) InvalidateLocationCache(ctx context.Context, mapGuid string) error {
	a.Maps.InvalidateMapLocations(ctx, mapGuid)
	return nil
}
