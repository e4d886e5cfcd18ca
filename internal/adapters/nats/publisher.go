package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"mapmarks/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "GEOOPS_LOCATIONS",
			Subjects:  []string{"geoops.location.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GEOOPS_INGEST",
			Subjects:  []string{"geoops.ingest.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishLocationWritten announces a persisted location record.
func (p *Publisher) PublishLocationWritten(ctx context.Context, loc *domain.MapLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("geoops.location.written."+loc.Map, data)
	return err
}

// PublishIngestCompleted announces the outcome counts of a bulk import.
func (p *Publisher) PublishIngestCompleted(ctx context.Context, mapGuid string, successes, errors int) error {
	data, err := json.Marshal(struct {
		MapGuid   string `json:"mapGuid"`
		Successes int    `json:"successes"`
		Errors    int    `json:"errors"`
	}{mapGuid, successes, errors})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("geoops.ingest.completed."+mapGuid, data)
	return err
}

// PublishMarkerSelected broadcasts a marker selection to live dashboards.
// Plain NATS: selection is ephemeral UI state, not worth persisting.
func (p *Publisher) PublishMarkerSelected(ctx context.Context, mapGuid, locationGuid string) error {
	data, err := json.Marshal(struct {
		MapGuid      string `json:"mapGuid"`
		LocationGuid string `json:"locationGuid"`
	}{mapGuid, locationGuid})
	if err != nil {
		return err
	}
	return p.conn.Publish("geoops.selection.broadcast", data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
