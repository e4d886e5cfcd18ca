package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.Contains(path, "/markers"):
			ttl = "no-cache" // Comparisons must reflect the live viewport

		case strings.HasPrefix(path, "/v1/selection"):
			ttl = "no-cache" // Ephemeral UI state

		case path == "/v1/maps":
			ttl = "public, max-age=60"

		case strings.Contains(path, "/locations"):
			ttl = "public, max-age=60" // Changes only on ingestion commits

		case strings.HasPrefix(path, "/v1/maps/"):
			ttl = "public, max-age=300" // Single map metadata

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
