package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mapmarks/internal/core/domain"
	"mapmarks/internal/pkg/metrics"
)

// Transport implements ports.QueryTransport against a GraphQL telemetry
// backend. All queries for one reconciliation pass are folded into a single
// aliased document so a viewport change costs one round trip.
type Transport struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewTransport creates a Transport with the given request timeout.
func NewTransport(endpoint, apiKey string, timeout time.Duration) *Transport {
	return &Transport{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// RunBatch dispatches all descriptors as one aliased document and returns
// results keyed by descriptor key. Keys whose query produced no rows are
// absent from the result.
func (t *Transport) RunBatch(ctx context.Context, accountID int, queries []domain.QueryDescriptor) (map[string]float64, error) {
	if len(queries) == 0 {
		return map[string]float64{}, nil
	}

	metrics.BatchDispatches.Inc()
	metrics.BatchQuerySize.Observe(float64(len(queries)))
	start := time.Now()

	body, err := json.Marshal(struct {
		Query string `json:"query"`
	}{buildDocument(accountID, queries)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.BatchDispatchErrors.Inc()
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	defer resp.Body.Close()

	metrics.BatchDispatchDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.BatchDispatchErrors.Inc()
		return nil, fmt.Errorf("dispatch: unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BatchDispatchErrors.Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	results, err := decodeBatch(payload)
	if err != nil {
		metrics.BatchDispatchErrors.Inc()
		return nil, err
	}
	return results, nil
}

// buildDocument folds every descriptor into one account-scoped query, each
// aliased by its key so responses correlate without ordering assumptions.
func buildDocument(accountID int, queries []domain.QueryDescriptor) string {
	var b strings.Builder
	b.WriteString("{ actor { account(id: ")
	b.WriteString(strconv.Itoa(accountID))
	b.WriteString(") {")
	for _, q := range queries {
		b.WriteString(" ")
		b.WriteString(q.Key)
		b.WriteString(": nrql(query: ")
		b.WriteString(strconv.Quote(q.Query))
		b.WriteString(") { results }")
	}
	b.WriteString(" } } }")
	return b.String()
}

func decodeBatch(payload []byte) (map[string]float64, error) {
	var envelope struct {
		Data struct {
			Actor struct {
				Account map[string]json.RawMessage `json:"account"`
			} `json:"actor"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("dispatch: %s", envelope.Errors[0].Message)
	}

	out := make(map[string]float64, len(envelope.Data.Actor.Account))
	for alias, raw := range envelope.Data.Actor.Account {
		if alias == "id" {
			continue
		}
		var block struct {
			Results []map[string]any `json:"results"`
		}
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		if v, ok := firstNumeric(block.Results); ok {
			out[alias] = v
		}
	}
	return out, nil
}

// firstNumeric extracts the first numeric field of the first result row.
// Aggregate queries return a single row with one value under a function
// name that varies by query, so the field name cannot be known up front.
func firstNumeric(results []map[string]any) (float64, bool) {
	if len(results) == 0 {
		return 0, false
	}
	for _, v := range results[0] {
		if f, ok := v.(float64); ok {
			return f, true
		}
	}
	return 0, false
}
