package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that a handler did
// not already claim. Session state and frames are live data and must never
// be cached by intermediaries.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/sessions/"):
			ttl = "no-store" // live per-viewer state

		case strings.HasPrefix(path, "/v1/cache"):
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/poi/nearby"):
			ttl = "public, max-age=60" // the store quantizes cells anyway

		case strings.HasPrefix(path, "/v1/articles/"):
			ttl = "public, max-age=3600" // encyclopedia summaries are stable

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
