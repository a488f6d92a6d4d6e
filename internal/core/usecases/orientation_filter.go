package usecases

import (
	"math"
	"sync"

	"github.com/lookoutar/lookout/internal/core/domain"
)

const (
	// Minimum sliding-window length for heading smoothing.
	minHeadingWindow = 5

	// Exponential smoothing factor for pitch and roll.
	defaultTiltAlpha = 0.15
)

// OrientationFilter smooths raw compass and tilt readings for one session.
// Heading uses a circular mean over a sliding window of sin/cos components,
// which averages correctly across the 0°/360° boundary (359° and 1° must
// come out near 0°, not 180°). Pitch and roll use exponential smoothing
// initialised by the first sample.
//
// Update runs at the sensor's native event rate; Snapshot is sampled by the
// frame driver at its own cadence. Both are safe to call concurrently.
type OrientationFilter struct {
	mu sync.Mutex

	window      int
	alpha       float64
	calibration float64 // degrees, added to raw heading before smoothing

	sins  []float64
	coss  []float64
	next  int
	count int

	pitch   float64
	roll    float64
	hasTilt bool
}

// NewOrientationFilter creates a filter with the given heading window size
// (clamped to at least 5) and calibration offset in degrees.
func NewOrientationFilter(window int, calibrationDeg float64) *OrientationFilter {
	if window < minHeadingWindow {
		window = minHeadingWindow
	}
	return &OrientationFilter{
		window:      window,
		alpha:       defaultTiltAlpha,
		calibration: wrapDegrees(calibrationDeg),
		sins:        make([]float64, window),
		coss:        make([]float64, window),
	}
}

// Update feeds one raw sensor reading into the filter.
func (f *OrientationFilter) Update(headingDeg, pitchDeg, rollDeg float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := wrapDegrees(headingDeg + f.calibration)
	rad := h * math.Pi / 180
	f.sins[f.next] = math.Sin(rad)
	f.coss[f.next] = math.Cos(rad)
	f.next = (f.next + 1) % f.window
	if f.count < f.window {
		f.count++
	}

	if !f.hasTilt {
		f.pitch = pitchDeg
		f.roll = rollDeg
		f.hasTilt = true
		return
	}
	f.pitch = f.alpha*pitchDeg + (1-f.alpha)*f.pitch
	f.roll = f.alpha*rollDeg + (1-f.alpha)*f.roll
}

// Snapshot returns the current smoothed orientation. Before any reading has
// arrived it returns the zero sample.
func (f *OrientationFilter) Snapshot() domain.OrientationSample {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.count == 0 {
		return domain.OrientationSample{}
	}

	var sumSin, sumCos float64
	for i := 0; i < f.count; i++ {
		sumSin += f.sins[i]
		sumCos += f.coss[i]
	}
	n := float64(f.count)
	heading := wrapDegrees(math.Atan2(sumSin/n, sumCos/n) * 180 / math.Pi)

	return domain.OrientationSample{
		HeadingDegrees: heading,
		PitchDegrees:   f.pitch,
		RollDegrees:    f.roll,
	}
}

// SetCalibration replaces the compass calibration offset and clears the
// smoothing state so old readings do not bleed through.
func (f *OrientationFilter) SetCalibration(deg float64) {
	f.mu.Lock()
	f.calibration = wrapDegrees(deg)
	f.mu.Unlock()
	f.Reset()
}

// Reset clears all smoothing state, e.g. after recalibration.
func (f *OrientationFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = 0
	f.count = 0
	f.pitch = 0
	f.roll = 0
	f.hasTilt = false
}

// wrapDegrees normalizes an angle into [0,360).
func wrapDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
