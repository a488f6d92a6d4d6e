package http

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/usecases"
)

// NearbyPOIsHandler serves GET /v1/poi/nearby?lat=&lon=&radius=.
func NearbyPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}
		radius, err := strconv.ParseFloat(c.Query("radius", "2000"), 64)
		if err != nil {
			return errBadRequest(c, "radius must be a number")
		}

		pois, err := deps.POIs.FetchNearby(c.UserContext(), domain.GeoPoint{Lat: lat, Lon: lon}, radius)
		if err != nil {
			// Stale fallback: serve what we have but flag degradation.
			if len(pois) > 0 {
				c.Set("X-Lookout-Stale", "true")
				return c.JSON(fiber.Map{"pois": pois, "stale": true})
			}
			return errDomain(c, err)
		}
		return c.JSON(fiber.Map{"pois": pois, "stale": false})
	}
}

// GetArticleHandler serves GET /v1/articles/:ref.
func GetArticleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := urlDecodedParam(c, "ref")
		if err != nil || ref == "" {
			return errBadRequest(c, "article reference is required")
		}
		article, err := deps.Articles.Lookup(c.UserContext(), ref)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(article)
	}
}

// CreateSessionHandler serves POST /v1/sessions.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var opts usecases.SessionOptions
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&opts); err != nil {
				return errBadRequest(c, "invalid session options")
			}
		}
		s := deps.Sessions.Create(opts)
		return c.Status(201).JSON(s)
	}
}

// DeleteSessionHandler serves DELETE /v1/sessions/:id.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.Params("id")); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// SensorsHandler serves POST /v1/sessions/:id/sensors for clients that
// cannot hold a WebSocket open.
func SensorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reading domain.SensorReading
		if err := c.BodyParser(&reading); err != nil {
			return errBadRequest(c, "invalid sensor reading")
		}
		if err := deps.Sessions.UpdateSensors(c.Params("id"), reading); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(202)
	}
}

// CalibrateHandler serves POST /v1/sessions/:id/calibrate.
func CalibrateHandler(deps *Dependencies) fiber.Handler {
	type calibrateRequest struct {
		OffsetDegrees float64 `json:"offset_degrees"`
	}
	return func(c *fiber.Ctx) error {
		var req calibrateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid calibration request")
		}
		if err := deps.Sessions.Calibrate(c.Params("id"), req.OffsetDegrees); err != nil {
			return errDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// LatestFrameHandler serves GET /v1/sessions/:id/frame: the most recent
// composed placements, for polling clients and debugging.
func LatestFrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errDomain(c, err)
		}
		frame := s.LatestFrame()
		if frame == nil {
			return errNotFound(c, "no frame composed yet (waiting for a position fix)")
		}
		return c.JSON(frame)
	}
}

// CacheStatsHandler serves GET /v1/cache/stats.
func CacheStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.POIs.CacheStats())
	}
}

// ClearCacheHandler serves DELETE /v1/cache.
func ClearCacheHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.POIs.ClearCache(c.UserContext())
		return c.SendStatus(204)
	}
}

func urlDecodedParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}
