package http_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	handler "mapmarks/internal/adapters/http"
)

func TestLoggerFromCtx_FallsBackToDefault(t *testing.T) {
	if got := handler.LoggerFromCtx(context.Background()); got != slog.Default() {
		t.Error("expected the default logger when no request logger is set")
	}
}

func TestRequestIDLogMiddleware_InjectsRequestLogger(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(requestid.New())
	app.Use(handler.RequestIDLogMiddleware())

	var injected bool
	app.Get("/check", func(c *fiber.Ctx) error {
		injected = handler.LoggerFromCtx(c.UserContext()) != slog.Default()
		return c.SendStatus(200)
	})

	req := httptest.NewRequest("GET", "/check", nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatal(err)
	}
	if !injected {
		t.Error("expected a per-request logger carrying the request id")
	}
}
