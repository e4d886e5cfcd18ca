package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "mapmarks/internal/adapters/nats"
	"mapmarks/internal/adapters/postgres"
	"mapmarks/internal/adapters/valkey"
	"mapmarks/internal/core/usecases"
	"mapmarks/internal/pkg/config"
	"mapmarks/internal/pkg/logging"
	"mapmarks/internal/workflows"
)

func main() {
	cfg, err := config.Load("mapmarks-importworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Printf("valkey unavailable, cache invalidation disabled: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("nats unavailable, events disabled: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	locationRepo := postgres.NewLocationRepo(db)
	mapRepo := postgres.NewMapRepo(db)

	var ingestion *usecases.IngestionService
	if publisher != nil {
		ingestion = usecases.NewIngestionService(locationRepo, publisher)
	} else {
		ingestion = usecases.NewIngestionService(locationRepo, nil)
	}

	var maps *usecases.MapService
	if cache != nil {
		maps = usecases.NewMapService(mapRepo, locationRepo, cache)
	} else {
		maps = usecases.NewMapService(mapRepo, locationRepo, nil)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: "localhost:7233",
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, "bulk-import-queue", worker.Options{})

	w.RegisterWorkflow(workflows.BulkImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Ingestion: ingestion,
		Maps:      maps,
	})

	log.Println("import worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
