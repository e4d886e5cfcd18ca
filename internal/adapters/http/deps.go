package http

import (
	"github.com/nats-io/nats.go"

	"mapmarks/internal/adapters/postgres"
	"mapmarks/internal/adapters/valkey"
	"mapmarks/internal/core/ports"
	"mapmarks/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps      *usecases.MapService
	Markers   *usecases.MarkerService
	Ingestion *usecases.IngestionService
	Selection *usecases.SelectionService
	Publisher ports.EventPublisher
	AccountID int
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
