package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, provider_unavailable, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errDomain maps the engine's error taxonomy onto HTTP status codes.
func errDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return newError(c, 400, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return newError(c, 404, "not_found", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		return newError(c, 502, "provider_unavailable", err.Error())
	default:
		return newError(c, 500, "internal_error", err.Error())
	}
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}
