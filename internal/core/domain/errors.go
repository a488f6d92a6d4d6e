package domain

import "errors"

// Error taxonomy for the engine. Callers classify with errors.Is; the HTTP
// adapter maps these onto status codes.
var (
	// ErrInvalidInput marks bad coordinates, radii, or arguments. Fails
	// fast and is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable marks network failures, timeouts, rate limits
	// and server errors from the POI provider. Retried with backoff up to
	// the attempt budget, then surfaced.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound marks a lookup that succeeded but matched no record.
	// Surfaced, not retried.
	ErrNotFound = errors.New("not found")
)

// Retriable reports whether a failed provider call may be attempted again.
// Malformed records are not represented here at all: they are dropped during
// parsing, not surfaced as errors.
func Retriable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
