package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	natsadapter "mapmarks/internal/adapters/nats"
	"mapmarks/internal/adapters/postgres"
	"mapmarks/internal/core/domain"
	"mapmarks/internal/core/usecases"
	"mapmarks/internal/pkg/config"
	"mapmarks/internal/pkg/logging"
)

func main() {
	mapGuid := flag.String("map", "", "guid of the map to import into")
	accountID := flag.Int("account", 0, "account to write under (default: query.account_id)")
	dryRun := flag.Bool("dry-run", false, "parse and validate only, write nothing")
	flag.Parse()

	if *mapGuid == "" || flag.NArg() == 0 {
		log.Fatal("usage: ingestor -map <guid> [-account <id>] [-dry-run] <file.json> [file.json...]")
	}

	cfg, err := config.Load("mapmarks-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "text")

	if *accountID == 0 {
		*accountID = cfg.Query.AccountID
	}

	ctx := context.Background()

	sources := make([]domain.FileSource, 0, flag.NArg())
	for _, path := range flag.Args() {
		path := path
		sources = append(sources, domain.FileSource{
			Name: filepath.Base(path),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	if len(sources) > cfg.Ingest.MaxFiles {
		log.Fatalf("too many files: %d (max %d)", len(sources), cfg.Ingest.MaxFiles)
	}

	// Read/validate phase needs no external services.
	preview := usecases.NewIngestionService(nil, nil)
	result := preview.LoadFiles(ctx, sources)

	for _, fe := range result.FileErrors {
		log.Printf("REJECTED %s: %v", fe.File, fe.Err)
	}
	log.Printf("accepted %d records from %d files (%d rejected)",
		len(result.FileData), len(sources), len(result.FileErrors))

	if *dryRun {
		for _, loc := range result.FileData {
			fmt.Printf("  %s  %s\n", loc.Guid, loc.Title)
		}
		return
	}
	if len(result.FileData) == 0 {
		log.Fatal("nothing to write")
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("nats unavailable, events disabled: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	var svc *usecases.IngestionService
	if publisher != nil {
		svc = usecases.NewIngestionService(postgres.NewLocationRepo(db), publisher)
	} else {
		svc = usecases.NewIngestionService(postgres.NewLocationRepo(db), nil)
	}

	partition, err := svc.PersistAll(ctx, *accountID, *mapGuid, result.FileData)
	if err != nil {
		log.Fatalf("persist: %v", err)
	}

	successes, failures := partition.Counts()
	for _, o := range partition.Errors() {
		log.Printf("WRITE FAILED %s: %s", o.Guid, o.Error)
	}
	log.Printf("done: %d written, %d failed", successes, failures)
	if failures > 0 {
		os.Exit(1)
	}
}
