package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/ports"
	"mapmarks/internal/pkg/locschema"
)

// itemsPath is the fixed top-level key upload files must carry their
// location array under.
const itemsPath = "items"

// IngestionService is the bulk file-ingestion pipeline: it reads uploaded
// JSON files concurrently, validates them against the relaxed location
// schema, assigns identifiers, and — on explicit confirmation — persists
// every accepted record independently.
type IngestionService struct {
	repo      ports.LocationRepository
	publisher ports.EventPublisher
	schema    *openapi3.Schema
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(repo ports.LocationRepository, publisher ports.EventPublisher) *IngestionService {
	return &IngestionService{
		repo:      repo,
		publisher: publisher,
		schema:    locschema.Relaxed(),
	}
}

// AssignIdentity attaches a freshly generated identifier to a record that
// has none. An existing guid is never overwritten, so re-assignment is a
// no-op.
func AssignIdentity(loc *domain.MapLocation) {
	if loc.Guid == "" {
		loc.Guid = uuid.NewString()
	}
}

// LoadFiles reads and validates all files concurrently. Every file settles
// to exactly one outcome: accepted files contribute their full decoded
// array to FileData (each record identity-assigned), rejected files are
// collected in FileErrors with their parse or schema error. One file's
// failure never aborts the others.
func (s *IngestionService) LoadFiles(ctx context.Context, sources []domain.FileSource) *domain.IngestResult {
	results := make([]domain.FileResult, len(sources))

	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.loadOne(sources[i])
		}(i)
	}
	wg.Wait()

	out := &domain.IngestResult{}
	for _, res := range results {
		if !res.Success {
			out.FileErrors = append(out.FileErrors, res)
			continue
		}
		for _, loc := range res.Result {
			AssignIdentity(&loc)
			out.FileData = append(out.FileData, loc)
		}
	}
	return out
}

// loadOne parses and validates a single file. Files are never partially
// accepted: a schema failure rejects the whole file's content.
func (s *IngestionService) loadOne(src domain.FileSource) domain.FileResult {
	fail := func(err error) domain.FileResult {
		return domain.FileResult{File: src.Name, Success: false, Result: []domain.MapLocation{}, Err: err}
	}

	rc, err := src.Open()
	if err != nil {
		return fail(&domain.ParseError{File: src.Name, Message: "open: " + err.Error()})
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return fail(&domain.ParseError{File: src.Name, Message: "read: " + err.Error()})
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fail(&domain.ParseError{File: src.Name, Message: "content is not valid JSON"})
	}

	var items []json.RawMessage
	if raw, ok := payload[itemsPath]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fail(&domain.ParseError{File: src.Name, Message: fmt.Sprintf("%q is not an array", itemsPath)})
		}
	}
	if len(items) == 0 {
		return fail(&domain.ParseError{File: src.Name, Message: fmt.Sprintf("no records found at %q", itemsPath)})
	}

	// Only the first record of each file is schema-checked; full-set
	// validation is deferred. Acceptance is still per whole file. The check
	// must see the same shape the decode below produces, so the storage
	// envelope is stripped first.
	var first any
	if err := json.Unmarshal(unwrapDocument(items[0]), &first); err != nil {
		return fail(&domain.ParseError{File: src.Name, Message: "first record is not valid JSON"})
	}
	if violations := locschema.Validate(s.schema, first); len(violations) > 0 {
		return fail(&domain.SchemaValidationError{File: src.Name, Violations: violations})
	}

	locations := make([]domain.MapLocation, 0, len(items))
	for i, raw := range items {
		var loc domain.MapLocation
		if err := json.Unmarshal(raw, &loc); err != nil {
			return fail(&domain.ParseError{File: src.Name, Message: fmt.Sprintf("record %d: %v", i, err)})
		}
		locations = append(locations, loc)
	}

	return domain.FileResult{File: src.Name, Success: true, Result: locations}
}

// unwrapDocument strips the storage envelope {"id": ..., "document": {...}}
// from a raw record, the same way MapLocation decoding does.
func unwrapDocument(raw json.RawMessage) json.RawMessage {
	var envelope struct {
		Document json.RawMessage `json:"document"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Document) > 0 {
		return envelope.Document
	}
	return raw
}

// PersistAll writes every record independently and concurrently, joining on
// an all-settle barrier: one record's failure neither blocks nor rolls back
// its siblings. Each outcome is folded into the returned partition with
// update-in-place-by-guid semantics.
//
// Records are stamped with the owning map before writing. Any record still
// missing its guid or map association is an upstream invariant violation:
// PersistAll fails fast with a ContractError before attempting a single
// external write.
func (s *IngestionService) PersistAll(ctx context.Context, accountID int, mapGuid string, locations []domain.MapLocation) (*domain.WritePartition, error) {
	stamped := make([]domain.MapLocation, len(locations))
	for i, loc := range locations {
		if mapGuid != "" {
			loc.Map = mapGuid
		}
		if loc.Guid == "" {
			return nil, &domain.ContractError{Reason: fmt.Sprintf("record %q reached persistence without a guid", loc.Title)}
		}
		if loc.Map == "" {
			return nil, &domain.ContractError{Reason: fmt.Sprintf("record %s reached persistence without a map association", loc.Guid)}
		}
		stamped[i] = loc
	}

	partition := domain.NewWritePartition()

	var wg sync.WaitGroup
	for i := range stamped {
		wg.Add(1)
		go func(loc domain.MapLocation) {
			defer wg.Done()
			partition.Record(s.writeOne(ctx, accountID, loc))
		}(stamped[i])
	}
	wg.Wait()

	if s.publisher != nil {
		successes, errors := partition.Counts()
		_ = s.publisher.PublishIngestCompleted(ctx, mapGuid, successes, errors)
	}

	return partition, nil
}

func (s *IngestionService) writeOne(ctx context.Context, accountID int, loc domain.MapLocation) domain.WriteResult {
	written, err := s.repo.Write(ctx, accountID, &loc)
	if err != nil {
		return domain.WriteResult{Data: &loc, Err: &domain.WriteError{Guid: loc.Guid, Err: err}}
	}

	if s.publisher != nil {
		_ = s.publisher.PublishLocationWritten(ctx, written)
	}
	return domain.WriteResult{Data: written}
}
