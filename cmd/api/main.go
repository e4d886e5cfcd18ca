package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"mapmarks/internal/adapters/http"
	natsadapter "mapmarks/internal/adapters/nats"
	"mapmarks/internal/adapters/postgres"
	"mapmarks/internal/adapters/telemetry"
	"mapmarks/internal/adapters/valkey"
	"mapmarks/internal/core/ports"
	"mapmarks/internal/core/usecases"
	"mapmarks/internal/pkg/config"
	"mapmarks/internal/pkg/logging"
	"mapmarks/internal/pkg/metrics"
	pkgtelemetry "mapmarks/internal/pkg/telemetry"
)

const hoverCloseDelay = 150 * time.Millisecond

func main() {
	cfg, err := config.Load("mapmarks-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := pkgtelemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Cache. A failed connect must leave the interface nil, not wrap a nil
	// pointer: the services skip the collaborator only on a true nil.
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache = valkeyCache
		defer valkeyCache.Close()
	}

	// NATS
	var publisher ports.EventPublisher
	natsPublisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = natsPublisher
		defer natsPublisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	mapRepo := postgres.NewMapRepo(db)
	locationRepo := postgres.NewLocationRepo(db)

	// Query backend
	transport := telemetry.NewTransport(
		cfg.Query.Endpoint, cfg.Query.APIKey,
		time.Duration(cfg.Query.TimeoutMs)*time.Millisecond)

	// Use cases
	mapSvc := usecases.NewMapService(mapRepo, locationRepo, cache)
	markerSvc := usecases.NewMarkerService(transport)
	ingestionSvc := usecases.NewIngestionService(locationRepo, publisher)
	selectionSvc := usecases.NewSelectionService(hoverCloseDelay, func(guid string) {
		slog.Debug("hover popup closed", "location", guid)
	})

	deps := &http.Dependencies{
		Maps:      mapSvc,
		Markers:   markerSvc,
		Ingestion: ingestionSvc,
		Selection: selectionSvc,
		Publisher: publisher,
		AccountID: cfg.Query.AccountID,
		NATS:      natsConn,
		DB:        db,
		Cache:     valkeyCache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Ingest.MaxFileSizeMB * cfg.Ingest.MaxFiles * 1024 * 1024,
		AppName:      "MapMarks API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
