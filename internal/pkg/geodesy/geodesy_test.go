package geodesy_test

import (
	"errors"
	"math"
	"testing"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/pkg/geodesy"
)

var (
	eiffel  = domain.GeoPoint{Lat: 48.8584, Lon: 2.2945}
	liberty = domain.GeoPoint{Lat: 40.6892, Lon: -74.0445}
)

func TestDistance_IdenticalPoints(t *testing.T) {
	d, err := geodesy.Distance(eiffel, eiffel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 0 {
		t.Errorf("expected 0 for identical points, got %v", d)
	}
}

func TestDistance_KnownFixture(t *testing.T) {
	d, err := geodesy.Distance(eiffel, liberty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Eiffel Tower to Statue of Liberty, ±1%.
	const want = 5837000.0
	if math.Abs(d-want) > want*0.01 {
		t.Errorf("expected ~%v m, got %v m", want, d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	ab, err := geodesy.Distance(eiffel, liberty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := geodesy.Distance(liberty, eiffel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ab-ba) > 1e-6 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistance_InvalidLatitude(t *testing.T) {
	_, err := geodesy.Distance(domain.GeoPoint{Lat: 91}, eiffel)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBearing_IdenticalPoints(t *testing.T) {
	b, err := geodesy.Bearing(liberty, liberty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != 0 {
		t.Errorf("expected 0 for identical points, got %v", b)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	origin := domain.GeoPoint{Lat: 0, Lon: 0}
	cases := []struct {
		name   string
		target domain.GeoPoint
		want   float64
	}{
		{"north", domain.GeoPoint{Lat: 1, Lon: 0}, 0},
		{"east", domain.GeoPoint{Lat: 0, Lon: 1}, 90},
		{"south", domain.GeoPoint{Lat: -1, Lon: 0}, 180},
		{"west", domain.GeoPoint{Lat: 0, Lon: -1}, 270},
	}
	for _, tc := range cases {
		got, err := geodesy.Bearing(origin, tc.target)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if math.Abs(got-tc.want) > 0.01 {
			t.Errorf("%s: expected %v°, got %v°", tc.name, tc.want, got)
		}
	}
}

func TestDestination_RoundTrip(t *testing.T) {
	for _, dist := range []float64{0, 10, 2500, 100000, 1000000, 10000000} {
		for _, brng := range []float64{0, 45, 135, 222.5, 359} {
			dest, err := geodesy.Destination(eiffel, dist, brng)
			if err != nil {
				t.Fatalf("destination(%v,%v): %v", dist, brng, err)
			}
			back, err := geodesy.Distance(eiffel, dest)
			if err != nil {
				t.Fatalf("distance back: %v", err)
			}
			tol := math.Max(dist*1e-6, 0.001)
			if math.Abs(back-dist) > tol {
				t.Errorf("round trip d=%v θ=%v: got %v back", dist, brng, back)
			}
		}
	}
}

func TestDestination_LongitudeNormalized(t *testing.T) {
	// Travel east across the antimeridian.
	origin := domain.GeoPoint{Lat: 0, Lon: 179.5}
	dest, err := geodesy.Destination(origin, 200000, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Lon > 180 || dest.Lon <= -180 {
		t.Errorf("longitude not normalized: %v", dest.Lon)
	}
	if dest.Lon > 0 {
		t.Errorf("expected wrap to negative longitude, got %v", dest.Lon)
	}
}

func TestSignedOffset_Wraparound(t *testing.T) {
	cases := []struct {
		bearing, heading, want float64
	}{
		{10, 350, 20},
		{350, 10, -20},
		{180, 0, 180},
		{0, 180, 180},
		{90, 90, 0},
	}
	for _, tc := range cases {
		got := geodesy.SignedOffset(tc.bearing, tc.heading)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("SignedOffset(%v,%v) = %v, want %v", tc.bearing, tc.heading, got, tc.want)
		}
	}
}

func TestProjectToScreen_OutsideFOV(t *testing.T) {
	vp := geodesy.Viewport{Width: 1080, Height: 1920, HFOVDeg: 60}
	user := domain.GeoPoint{Lat: 0, Lon: 0}

	// Sweep headings; target due north.
	target := domain.GeoPoint{Lat: 0.01, Lon: 0}
	for heading := 0.0; heading < 360; heading += 7 {
		vp.Heading = heading
		pos, err := geodesy.ProjectToScreen(user, target, vp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		off := geodesy.SignedOffset(0, heading)
		visible := math.Abs(off) <= vp.HFOVDeg/2
		if visible && pos == nil {
			t.Errorf("heading %v: expected visible, got nil", heading)
		}
		if !visible && pos != nil {
			t.Errorf("heading %v: expected culled, got %+v", heading, pos)
		}
	}
}

func TestProjectToScreen_CenterAndEdges(t *testing.T) {
	vp := geodesy.Viewport{Width: 1000, Height: 2000, HFOVDeg: 60, Heading: 0}
	user := domain.GeoPoint{Lat: 0, Lon: 0}

	// Dead ahead lands on the horizontal center.
	pos, err := geodesy.ProjectToScreen(user, domain.GeoPoint{Lat: 0.01, Lon: 0}, vp)
	if err != nil || pos == nil {
		t.Fatalf("expected projection, got pos=%v err=%v", pos, err)
	}
	if math.Abs(pos.X-500) > 1 {
		t.Errorf("expected x near 500, got %v", pos.X)
	}
}

func TestProjectToScreen_DepthPlacement(t *testing.T) {
	vp := geodesy.Viewport{Width: 1000, Height: 2000, HFOVDeg: 60, Heading: 0}
	user := domain.GeoPoint{Lat: 0, Lon: 0}

	near, err := geodesy.ProjectToScreen(user, domain.GeoPoint{Lat: 0.001, Lon: 0}, vp) // ~111 m
	if err != nil || near == nil {
		t.Fatalf("near: pos=%v err=%v", near, err)
	}
	far, err := geodesy.ProjectToScreen(user, domain.GeoPoint{Lat: 0.04, Lon: 0}, vp) // ~4.4 km
	if err != nil || far == nil {
		t.Fatalf("far: pos=%v err=%v", far, err)
	}
	if near.Y <= far.Y {
		t.Errorf("near label should sit lower on screen: near=%v far=%v", near.Y, far.Y)
	}

	// Beyond the reference distance clamps to the far band.
	veryFar, err := geodesy.ProjectToScreen(user, domain.GeoPoint{Lat: 0.5, Lon: 0}, vp) // ~55 km
	if err != nil || veryFar == nil {
		t.Fatalf("veryFar: pos=%v err=%v", veryFar, err)
	}
	if math.Abs(veryFar.Y-0.10*2000) > 0.5 {
		t.Errorf("expected clamp at 10%% of height, got %v", veryFar.Y)
	}
}

func TestBoundingBox_ContainsCenter(t *testing.T) {
	b := geodesy.BoundingBox(eiffel, 1000)
	if eiffel.Lat < b.MinLat || eiffel.Lat > b.MaxLat || eiffel.Lon < b.MinLon || eiffel.Lon > b.MaxLon {
		t.Errorf("bounding box %+v does not contain center %+v", b, eiffel)
	}
}
