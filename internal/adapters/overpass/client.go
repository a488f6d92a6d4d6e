// Package overpass implements ports.POIProvider against an Overpass API
// endpoint (OpenStreetMap query service).
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// Client queries Overpass for nodes around a point that carry enough tag
// data to become labelled POIs.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

// New creates a client. The timeout here is a transport-level ceiling; the
// caller applies its own per-request deadline through ctx.
func New(endpoint, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:  endpoint,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// element is one raw Overpass record.
type element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type response struct {
	Elements []element `json:"elements"`
}

// QueryNearby implements ports.POIProvider.
func (c *Client) QueryNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.POI, error) {
	ctx, span := otel.Tracer("lookout/overpass").Start(ctx, "overpass.QueryNearby")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("radius_m", radiusMeters),
		attribute.Float64("lat", center.Lat),
		attribute.Float64("lon", center.Lon),
	)

	query := buildQuery(center, radiusMeters)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(url.Values{"data": {query}}.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, aborts, and transport failures are all retriable.
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrProviderUnavailable, err)
	}

	pois := ParseElements(parsed.Elements, center)
	span.SetAttributes(
		attribute.Int("records", len(parsed.Elements)),
		attribute.Int("accepted", len(pois)),
	)
	return pois, nil
}

// buildQuery selects nodes within the radius that carry an article
// reference. Both the wikipedia and wikidata tags count; the name filter is
// applied at parse time so tag absence is observable in drop metrics.
func buildQuery(center domain.GeoPoint, radiusMeters float64) string {
	around := fmt.Sprintf("around:%.0f,%.6f,%.6f", radiusMeters, center.Lat, center.Lon)
	return fmt.Sprintf(
		"[out:json][timeout:25];(node(%s)[\"wikipedia\"];node(%s)[\"wikidata\"];);out body;",
		around, around,
	)
}

// classifyStatus maps an HTTP status onto the error taxonomy. Rate limiting
// and server errors are retriable; other client errors are not.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited (HTTP %d)", domain.ErrProviderUnavailable, code)
	case code >= 500:
		return fmt.Errorf("%w: server error (HTTP %d)", domain.ErrProviderUnavailable, code)
	case code >= 400:
		return fmt.Errorf("provider rejected query (HTTP %d)", code)
	default:
		return fmt.Errorf("%w: unexpected status HTTP %d", domain.ErrProviderUnavailable, code)
	}
}
