package geodesy

import (
	"math"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// Reference distance at which labels reach the top of their vertical band.
// POIs at or beyond this render at the "far" height regardless of their
// actual distance.
const maxDepthMeters = 5000.0

// Vertical band for label placement: 0 m maps to 85% of screen height from
// the top, maxDepthMeters and beyond to 10%.
const (
	nearYPercent = 0.85
	farYPercent  = 0.10
)

// ScreenPos is a projected label anchor in pixels, origin at the top-left.
type ScreenPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport describes the camera view a projection targets.
type Viewport struct {
	Width    float64
	Height   float64
	HFOVDeg  float64
	VFOVDeg  float64
	Heading  float64
	PitchDeg float64
}

// ProjectToScreen maps a target onto the camera viewport, or returns
// (nil, nil) when the target is outside the horizontal field of view. That
// offset check is the sole visibility gate: pitch is carried in the viewport
// but never used for culling, since device pitch is too inconsistent across
// hardware to trust. Vertical position is a depth illusion interpolated from
// distance, not a true elevation projection (POIs carry no altitude).
func ProjectToScreen(user, target domain.GeoPoint, vp Viewport) (*ScreenPos, error) {
	brng, err := Bearing(user, target)
	if err != nil {
		return nil, err
	}
	dist, err := Distance(user, target)
	if err != nil {
		return nil, err
	}

	offset := SignedOffset(brng, vp.Heading)
	if math.Abs(offset) > vp.HFOVDeg/2 {
		return nil, nil
	}

	// offset/hFOV ∈ [-0.5,0.5] maps linearly onto [0,width].
	x := vp.Width/2 + (offset/vp.HFOVDeg)*vp.Width

	depth := math.Min(dist/maxDepthMeters, 1)
	yPercent := nearYPercent - (nearYPercent-farYPercent)*depth
	y := yPercent * vp.Height

	return &ScreenPos{X: x, Y: y}, nil
}
