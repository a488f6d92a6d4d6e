package overpass

import (
	"fmt"
	"strings"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/pkg/geodesy"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// ParseElements turns raw provider records into POIs, deduplicated by record
// ID. Records missing a name, resolvable coordinates, or an article
// reference are dropped without error: most map data carries no article
// metadata and that is expected, not exceptional.
func ParseElements(elements []element, center domain.GeoPoint) []domain.POI {
	seen := make(map[string]struct{}, len(elements))
	pois := make([]domain.POI, 0, len(elements))

	for _, el := range elements {
		poi, ok := parseElement(el, center)
		if !ok {
			metrics.RecordsDropped.Inc()
			continue
		}
		if _, dup := seen[poi.ID]; dup {
			continue
		}
		seen[poi.ID] = struct{}{}
		pois = append(pois, poi)
	}
	return pois
}

// parseElement is a total function over provider records: it never fails,
// it only accepts or declines.
func parseElement(el element, center domain.GeoPoint) (domain.POI, bool) {
	if el.Type != "node" {
		return domain.POI{}, false
	}
	loc := domain.GeoPoint{Lat: el.Lat, Lon: el.Lon}
	if (el.Lat == 0 && el.Lon == 0) || !loc.Valid() {
		return domain.POI{}, false
	}

	name := strings.TrimSpace(el.Tags["name"])
	if name == "" {
		return domain.POI{}, false
	}

	ref := externalRef(el.Tags)
	if ref == "" {
		return domain.POI{}, false
	}

	dist, err := geodesy.Distance(center, loc)
	if err != nil {
		return domain.POI{}, false
	}
	brng, err := geodesy.Bearing(center, loc)
	if err != nil {
		return domain.POI{}, false
	}

	return domain.POI{
		ID:             fmt.Sprintf("%s/%d", el.Type, el.ID),
		Name:           name,
		Location:       loc,
		DistanceMeters: dist,
		BearingDegrees: brng,
		ExternalRef:    ref,
	}, true
}

// externalRef picks the article key: a wikipedia tag ("lang:Title") wins
// over a bare wikidata ID.
func externalRef(tags map[string]string) string {
	if wp := strings.TrimSpace(tags["wikipedia"]); wp != "" {
		return wp
	}
	return strings.TrimSpace(tags["wikidata"])
}
