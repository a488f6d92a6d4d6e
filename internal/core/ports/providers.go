package ports

import (
	"context"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// POIProvider queries an external geographic data source for points of
// interest around a location. Implementations parse raw provider records and
// silently drop those without a name, coordinates, or an external reference;
// the returned slice carries only accepted POIs with distance and bearing
// filled in relative to the query point.
//
// Failures are classified with the domain error taxonomy so the caller can
// decide whether to retry.
type POIProvider interface {
	QueryNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]domain.POI, error)
}

// ArticleProvider resolves a POI's external reference to article content.
// Implementations are expected to be idempotent and do their own caching and
// rate limiting; the engine only requires a result or a classified failure.
type ArticleProvider interface {
	Lookup(ctx context.Context, ref string) (*domain.Article, error)
}
