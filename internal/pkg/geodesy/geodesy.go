// Package geodesy contains pure spherical-geometry helpers: great-circle
// distance, forward azimuth, destination point, and the camera-space
// projection used to pin labels. No state, deterministic.
package geodesy

import (
	"fmt"
	"math"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// Mean Earth radius in meters (IUGG).
const earthRadiusMeters = 6371000.0

// Distance returns the haversine great-circle distance in meters between two
// points. Identical points return exactly 0, sidestepping the degenerate
// case of the formula.
func Distance(a, b domain.GeoPoint) (float64, error) {
	if err := checkLatitudes(a, b); err != nil {
		return 0, err
	}
	if a == b {
		return 0, nil
	}

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c, nil
}

// Bearing returns the forward azimuth from a to b in degrees, clockwise from
// north, normalized to [0,360). Identical points return 0.
func Bearing(a, b domain.GeoPoint) (float64, error) {
	if err := checkLatitudes(a, b); err != nil {
		return 0, err
	}
	if a == b {
		return 0, nil
	}

	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return normalizeDegrees(toDeg(math.Atan2(y, x))), nil
}

// Destination returns the point reached by travelling distanceMeters from
// origin along the given initial bearing. The longitude of the result is
// normalized to (-180,180].
func Destination(origin domain.GeoPoint, distanceMeters, bearingDegrees float64) (domain.GeoPoint, error) {
	if err := checkLatitudes(origin); err != nil {
		return domain.GeoPoint{}, err
	}

	lat1 := toRad(origin.Lat)
	lon1 := toRad(origin.Lon)
	brng := toRad(bearingDegrees)
	dr := distanceMeters / earthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dr) +
		math.Cos(lat1)*math.Sin(dr)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(dr)*math.Cos(lat1),
		math.Cos(dr)-math.Sin(lat1)*math.Sin(lat2),
	)

	lonDeg := math.Mod(toDeg(lon2)+540, 360) - 180
	if lonDeg == -180 {
		lonDeg = 180
	}
	return domain.GeoPoint{Lat: toDeg(lat2), Lon: lonDeg}, nil
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters, useful for prefiltering provider queries.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: center.Lat - latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLat: center.Lat + latDelta,
		MaxLon: center.Lon + lonDelta,
	}
}

func checkLatitudes(pts ...domain.GeoPoint) error {
	for _, p := range pts {
		if p.Lat < -90 || p.Lat > 90 {
			return fmt.Errorf("%w: latitude %v out of range [-90,90]", domain.ErrInvalidInput, p.Lat)
		}
	}
	return nil
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeDegrees wraps an angle into [0,360).
func normalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// SignedOffset wraps the difference between two headings into (-180,180].
func SignedOffset(bearing, heading float64) float64 {
	off := math.Mod(bearing-heading, 360)
	if off > 180 {
		off -= 360
	} else if off <= -180 {
		off += 360
	}
	return off
}
