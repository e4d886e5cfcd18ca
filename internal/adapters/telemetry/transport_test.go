package telemetry_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mapmarks/internal/adapters/telemetry"
	"mapmarks/internal/core/domain"
)

func TestRunBatch_FoldsQueriesIntoOneRequest(t *testing.T) {
	var requests int
	var document string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		document = req.Query

		if r.Header.Get("API-Key") != "secret" {
			t.Errorf("expected API key header, got %q", r.Header.Get("API-Key"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"actor": {"account": {
			"Qaaa": {"results": [{"percentage": 99.5}]},
			"Qbbb": {"results": []}
		}}}}`))
	}))
	defer server.Close()

	tr := telemetry.NewTransport(server.URL, "secret", 5*time.Second)
	results, err := tr.RunBatch(context.Background(), 42, []domain.QueryDescriptor{
		{Key: "Qaaa", Query: "SELECT percentage(count(*)) FROM Checks"},
		{Key: "Qbbb", Query: "SELECT average(ms) FROM Pings"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requests != 1 {
		t.Errorf("expected one round trip for the whole batch, got %d", requests)
	}
	if !strings.Contains(document, "account(id: 42)") {
		t.Errorf("expected account scoping in document, got %s", document)
	}
	if !strings.Contains(document, "Qaaa:") || !strings.Contains(document, "Qbbb:") {
		t.Errorf("expected both aliases in document, got %s", document)
	}

	if got := results["Qaaa"]; got != 99.5 {
		t.Errorf("expected 99.5 for Qaaa, got %f", got)
	}
	if _, ok := results["Qbbb"]; ok {
		t.Error("a query with no rows must be absent from the results")
	}
}

func TestRunBatch_EmptyBatchSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for an empty batch")
	}))
	defer server.Close()

	tr := telemetry.NewTransport(server.URL, "secret", 5*time.Second)
	results, err := tr.RunBatch(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
}

func TestRunBatch_BackendErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "invalid query"}]}`))
	}))
	defer server.Close()

	tr := telemetry.NewTransport(server.URL, "secret", 5*time.Second)
	_, err := tr.RunBatch(context.Background(), 1, []domain.QueryDescriptor{
		{Key: "Qx", Query: "garbage"},
	})
	if err == nil {
		t.Fatal("expected an error from the backend")
	}
	if !strings.Contains(err.Error(), "invalid query") {
		t.Errorf("expected backend message carried through, got %v", err)
	}
}

func TestRunBatch_HTTPFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := telemetry.NewTransport(server.URL, "secret", 5*time.Second)
	_, err := tr.RunBatch(context.Background(), 1, []domain.QueryDescriptor{
		{Key: "Qx", Query: "SELECT 1"},
	})
	if err == nil {
		t.Fatal("expected an error on non-200 status")
	}
}
