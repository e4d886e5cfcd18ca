package usecases_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/usecases"
)

// --- Mock LocationRepository ---

type mockLocationRepo struct {
	mu        sync.Mutex
	written   []string
	writeFn   func(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error)
	listFn    func(ctx context.Context, mapGuid string) ([]domain.MapLocation, error)
	getFn     func(ctx context.Context, guid string) (*domain.MapLocation, error)
	deleteFn  func(ctx context.Context, guid string) error
}

func (m *mockLocationRepo) Write(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
	m.mu.Lock()
	m.written = append(m.written, loc.Guid)
	m.mu.Unlock()
	if m.writeFn != nil {
		return m.writeFn(ctx, accountID, loc)
	}
	return loc, nil
}

func (m *mockLocationRepo) GetByGuid(ctx context.Context, guid string) (*domain.MapLocation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, guid)
	}
	return nil, nil
}

func (m *mockLocationRepo) ListByMap(ctx context.Context, mapGuid string) ([]domain.MapLocation, error) {
	if m.listFn != nil {
		return m.listFn(ctx, mapGuid)
	}
	return nil, nil
}

func (m *mockLocationRepo) DeleteByGuid(ctx context.Context, guid string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, guid)
	}
	return nil
}

func (m *mockLocationRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	written   []string
	completed int
}

func (m *mockPublisher) PublishLocationWritten(ctx context.Context, loc *domain.MapLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, loc.Guid)
	return nil
}

func (m *mockPublisher) PublishIngestCompleted(ctx context.Context, mapGuid string, successes, errors int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	return nil
}

func (m *mockPublisher) PublishMarkerSelected(ctx context.Context, mapGuid, locationGuid string) error {
	return nil
}

func fileSource(name, content string) domain.FileSource {
	return domain.FileSource{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

// --- Read/validate phase ---

func TestLoadFiles_ValidAndBrokenFile(t *testing.T) {
	valid := `{"items": [{"title": "Lisbon DC", "externalId": "lis-01"}]}`
	broken := `{"items": [` // invalid JSON

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("locations.json", valid),
		fileSource("broken.json", broken),
	})

	if len(result.FileData) != 1 {
		t.Fatalf("expected 1 accepted record, got %d", len(result.FileData))
	}
	if result.FileData[0].Guid == "" {
		t.Error("accepted record should have received a generated guid")
	}
	if result.FileData[0].Title != "Lisbon DC" {
		t.Errorf("expected Lisbon DC, got %s", result.FileData[0].Title)
	}

	if len(result.FileErrors) != 1 {
		t.Fatalf("expected 1 failed file, got %d", len(result.FileErrors))
	}
	failure := result.FileErrors[0]
	if failure.File != "broken.json" {
		t.Errorf("expected broken.json to fail, got %s", failure.File)
	}
	var parseErr *domain.ParseError
	if !errors.As(failure.Err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", failure.Err)
	}
}

func TestLoadFiles_MissingItemsArray(t *testing.T) {
	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("empty.json", `{"markers": []}`),
	})

	if len(result.FileErrors) != 1 {
		t.Fatalf("expected a parse failure, got %+v", result)
	}
	var parseErr *domain.ParseError
	if !errors.As(result.FileErrors[0].Err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", result.FileErrors[0].Err)
	}
}

func TestLoadFiles_SchemaFailureRejectsWholeFile(t *testing.T) {
	// First record is missing the required title; the second is fine.
	// Acceptance is per file, so neither record survives.
	content := `{"items": [
		{"externalId": "no-title"},
		{"title": "Fine", "externalId": "ok-01"}
	]}`

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("mixed.json", content),
	})

	if len(result.FileData) != 0 {
		t.Fatalf("expected no records from a rejected file, got %d", len(result.FileData))
	}
	if len(result.FileErrors) != 1 {
		t.Fatalf("expected 1 failed file, got %d", len(result.FileErrors))
	}
	var schemaErr *domain.SchemaValidationError
	if !errors.As(result.FileErrors[0].Err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %T", result.FileErrors[0].Err)
	}
	if len(schemaErr.Violations) == 0 {
		t.Error("expected violation detail to be carried through")
	}
}

func TestLoadFiles_OnlyFirstRecordIsValidated(t *testing.T) {
	// The second record is missing required fields, but only the first
	// record of a file is checked against the schema.
	content := `{"items": [
		{"title": "Fine", "externalId": "ok-01"},
		{"externalId": "no-title"}
	]}`

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("first-only.json", content),
	})

	if len(result.FileErrors) != 0 {
		t.Fatalf("expected file to pass first-record validation, got %+v", result.FileErrors)
	}
	if len(result.FileData) != 2 {
		t.Fatalf("expected both records accepted, got %d", len(result.FileData))
	}
}

func TestLoadFiles_UnwrapsDocumentEnvelope(t *testing.T) {
	content := `{"items": [
		{"id": "abc", "document": {"title": "Wrapped", "externalId": "w-01", "entities": [{"guid": "e1"}]}}
	]}`

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("wrapped.json", content),
	})

	if len(result.FileData) != 1 {
		t.Fatalf("expected 1 record, got %+v", result)
	}
	loc := result.FileData[0]
	if loc.Title != "Wrapped" {
		t.Errorf("envelope was not unwrapped, title = %q", loc.Title)
	}
	if len(loc.Entities) != 1 || loc.Entities[0].AlertSeverity != domain.AlertSeverityNotConfigured {
		t.Errorf("expected severity default on linked entity, got %+v", loc.Entities)
	}
}

func TestLoadFiles_ValidatesInsideDocumentEnvelope(t *testing.T) {
	// The schema check runs against the record inside the envelope, so a
	// wrapped record missing its title is a schema failure, not a pass on
	// the envelope's own keys.
	content := `{"items": [
		{"id": "abc", "document": {"externalId": "w-02"}}
	]}`

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("wrapped-bad.json", content),
	})

	if len(result.FileErrors) != 1 {
		t.Fatalf("expected a schema failure, got %+v", result)
	}
	var schemaErr *domain.SchemaValidationError
	if !errors.As(result.FileErrors[0].Err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %T", result.FileErrors[0].Err)
	}
}

func TestLoadFiles_PreservesExistingGuid(t *testing.T) {
	content := `{"items": [{"guid": "keep-me", "title": "T", "externalId": "x"}]}`

	svc := usecases.NewIngestionService(&mockLocationRepo{}, nil)
	result := svc.LoadFiles(context.Background(), []domain.FileSource{
		fileSource("keep.json", content),
	})

	if len(result.FileData) != 1 || result.FileData[0].Guid != "keep-me" {
		t.Fatalf("existing guid must never be overwritten, got %+v", result.FileData)
	}
}

func TestAssignIdentity_Idempotent(t *testing.T) {
	loc := domain.MapLocation{Title: "T"}

	usecases.AssignIdentity(&loc)
	first := loc.Guid
	if first == "" {
		t.Fatal("expected a generated guid")
	}

	usecases.AssignIdentity(&loc)
	if loc.Guid != first {
		t.Errorf("re-assignment changed the guid: %s -> %s", first, loc.Guid)
	}
}

// --- Persistence phase ---

func TestPersistAll_PartitionsEveryRecordExactlyOnce(t *testing.T) {
	repo := &mockLocationRepo{
		writeFn: func(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
			if strings.HasPrefix(loc.Guid, "bad-") {
				return nil, errors.New("storage rejected document")
			}
			return loc, nil
		},
	}

	var locations []domain.MapLocation
	for _, guid := range []string{"ok-1", "bad-2", "ok-3", "bad-4", "ok-5", "ok-6"} {
		locations = append(locations, domain.MapLocation{Guid: guid, Title: guid})
	}

	svc := usecases.NewIngestionService(repo, nil)
	partition, err := svc.PersistAll(context.Background(), 42, "map-1", locations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	successes, failures := partition.Counts()
	if successes != 4 || failures != 2 {
		t.Fatalf("expected 4 successes and 2 errors, got %d/%d", successes, failures)
	}

	seen := map[string]int{}
	for _, o := range partition.Successes() {
		seen[o.Guid]++
	}
	for _, o := range partition.Errors() {
		seen[o.Guid]++
	}
	for _, loc := range locations {
		if seen[loc.Guid] != 1 {
			t.Errorf("record %s appears %d times across partitions", loc.Guid, seen[loc.Guid])
		}
	}
}

func TestPersistAll_WriteFailureDoesNotBlockSiblings(t *testing.T) {
	repo := &mockLocationRepo{
		writeFn: func(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
			if loc.Guid == "doomed" {
				return nil, errors.New("timeout")
			}
			return loc, nil
		},
	}

	svc := usecases.NewIngestionService(repo, nil)
	partition, err := svc.PersistAll(context.Background(), 1, "map-1", []domain.MapLocation{
		{Guid: "doomed", Title: "A"},
		{Guid: "fine", Title: "B"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.writeCount() != 2 {
		t.Errorf("expected both writes attempted, got %d", repo.writeCount())
	}
	if got := partition.Errors(); len(got) != 1 || got[0].Guid != "doomed" {
		t.Errorf("expected doomed in errors, got %+v", got)
	}
	if got := partition.Successes(); len(got) != 1 || got[0].Guid != "fine" {
		t.Errorf("expected fine in successes, got %+v", got)
	}
}

func TestPersistAll_StampsOwningMap(t *testing.T) {
	var stamped string
	repo := &mockLocationRepo{
		writeFn: func(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
			stamped = loc.Map
			return loc, nil
		},
	}

	svc := usecases.NewIngestionService(repo, nil)
	if _, err := svc.PersistAll(context.Background(), 1, "map-guid-9", []domain.MapLocation{
		{Guid: "a", Title: "A"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stamped != "map-guid-9" {
		t.Errorf("expected record stamped with owning map, got %q", stamped)
	}
}

func TestPersistAll_PublishesEventsWhenBrokerConfigured(t *testing.T) {
	repo := &mockLocationRepo{
		writeFn: func(ctx context.Context, accountID int, loc *domain.MapLocation) (*domain.MapLocation, error) {
			if loc.Guid == "bad-1" {
				return nil, errors.New("storage refused")
			}
			return loc, nil
		},
	}
	publisher := &mockPublisher{}

	svc := usecases.NewIngestionService(repo, publisher)
	if _, err := svc.PersistAll(context.Background(), 1, "map-1", []domain.MapLocation{
		{Guid: "ok-1", Title: "A"},
		{Guid: "bad-1", Title: "B"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.written) != 1 || publisher.written[0] != "ok-1" {
		t.Errorf("expected one written event for ok-1, got %v", publisher.written)
	}
	if publisher.completed != 1 {
		t.Errorf("expected one completion event, got %d", publisher.completed)
	}
}

func TestPersistAll_MissingGuidFailsFastBeforeAnyWrite(t *testing.T) {
	repo := &mockLocationRepo{}

	svc := usecases.NewIngestionService(repo, nil)
	_, err := svc.PersistAll(context.Background(), 1, "map-1", []domain.MapLocation{
		{Guid: "fine", Title: "A"},
		{Title: "no guid"},
	})

	var contractErr *domain.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected ContractError, got %v", err)
	}
	if repo.writeCount() != 0 {
		t.Errorf("no external write may be attempted after a contract violation, got %d", repo.writeCount())
	}
}

func TestPersistAll_MissingMapAssociationFailsFast(t *testing.T) {
	repo := &mockLocationRepo{}

	svc := usecases.NewIngestionService(repo, nil)
	_, err := svc.PersistAll(context.Background(), 1, "", []domain.MapLocation{
		{Guid: "a", Title: "A"},
	})

	var contractErr *domain.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected ContractError, got %v", err)
	}
}
