package usecases

import (
	"math"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/pkg/geodesy"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// LayoutConfig tunes visibility culling and label collision resolution.
type LayoutConfig struct {
	MaxVisibleMeters float64 // distance cull
	MaxLabels        int     // hard cap per frame
	HFOVDeg          float64
	VFOVDeg          float64

	LabelWidth  float64 // footprint at scale 1.0, pixels
	LabelHeight float64
	LabelGap    float64 // spacing between stacked labels

	TopMarginPercent    float64 // header zone, fraction of screen height
	BottomMarginPercent float64 // control zone

	MaxSlotAttempts int // offsets tried before a label is dropped
}

// DefaultLayoutConfig returns the product defaults for a phone viewport.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		MaxVisibleMeters:    10000,
		MaxLabels:           12,
		HFOVDeg:             60,
		VFOVDeg:             45,
		LabelWidth:          220,
		LabelHeight:         56,
		LabelGap:            8,
		TopMarginPercent:    0.08,
		BottomMarginPercent: 0.12,
		MaxSlotAttempts:     7,
	}
}

// Density tiers: label scale shrinks as the candidate count grows so more
// labels fit before collisions start dropping them.
func densityScale(candidates int) float64 {
	switch {
	case candidates <= 5:
		return 1.0
	case candidates <= 12:
		return 0.85
	default:
		return 0.7
	}
}

// placedBox is a label footprint already committed to this frame.
type placedBox struct {
	x, y, w, h float64
}

// LayoutEngine turns a POI set plus viewer state into non-overlapping label
// placements. Stateless between frames: every tick starts from scratch.
type LayoutEngine struct {
	cfg LayoutConfig
}

// NewLayoutEngine creates an engine with the given config.
func NewLayoutEngine(cfg LayoutConfig) *LayoutEngine {
	if cfg.MaxLabels <= 0 {
		cfg.MaxLabels = DefaultLayoutConfig().MaxLabels
	}
	if cfg.MaxSlotAttempts <= 0 {
		cfg.MaxSlotAttempts = DefaultLayoutConfig().MaxSlotAttempts
	}
	return &LayoutEngine{cfg: cfg}
}

// Compose runs one frame: cull by distance, project, rank by distance, cap,
// and resolve collisions. The input POI set is expected distance-sorted (the
// store guarantees it); Compose re-ranks defensively only through its stable
// placement order. Returned placements are nearest-first with zRank set so
// nearer labels render above farther ones.
func (e *LayoutEngine) Compose(pois []domain.POI, viewer domain.GeoPoint, orient domain.OrientationSample, screenW, screenH float64) []domain.LabelPlacement {
	vp := geodesy.Viewport{
		Width:    screenW,
		Height:   screenH,
		HFOVDeg:  e.cfg.HFOVDeg,
		VFOVDeg:  e.cfg.VFOVDeg,
		Heading:  orient.HeadingDegrees,
		PitchDeg: orient.PitchDegrees,
	}

	type candidate struct {
		poi domain.POI
		pos geodesy.ScreenPos
	}
	var candidates []candidate
	for _, poi := range pois {
		if poi.DistanceMeters > e.cfg.MaxVisibleMeters {
			continue
		}
		pos, err := geodesy.ProjectToScreen(viewer, poi.Location, vp)
		if err != nil || pos == nil {
			continue
		}
		candidates = append(candidates, candidate{poi: poi, pos: *pos})
	}

	scale := densityScale(len(candidates))
	boxW := e.cfg.LabelWidth * scale
	boxH := e.cfg.LabelHeight * scale
	step := boxH + e.cfg.LabelGap
	topY := e.cfg.TopMarginPercent * screenH
	bottomY := screenH - e.cfg.BottomMarginPercent*screenH

	var placements []domain.LabelPlacement
	var placed []placedBox
	dropped := 0

	for _, c := range candidates {
		if len(placements) >= e.cfg.MaxLabels {
			dropped++
			continue
		}
		y, ok := e.findSlot(c.pos.X, c.pos.Y, boxW, boxH, step, topY, bottomY, placed)
		if !ok {
			// Input is rank-sorted, so anything dropped here was the
			// farthest contender for its patch of screen.
			dropped++
			continue
		}
		placed = append(placed, placedBox{x: c.pos.X, y: y, w: boxW, h: boxH})
		placements = append(placements, domain.LabelPlacement{
			POI:     c.poi,
			ScreenX: c.pos.X,
			ScreenY: y,
			Scale:   scale,
			ZRank:   len(candidates) - len(placements),
		})
	}

	metrics.LabelsPlaced.Add(float64(len(placements)))
	metrics.LabelsDropped.Add(float64(dropped))
	return placements
}

// findSlot searches vertical offsets from the natural position in the order
// 0, +1, −1, +2, −2, … and returns the first y whose box neither overlaps an
// already-placed label nor leaves the vertical safety band.
func (e *LayoutEngine) findSlot(x, naturalY, w, h, step, topY, bottomY float64, placed []placedBox) (float64, bool) {
	for attempt := 0; attempt <= e.cfg.MaxSlotAttempts; attempt++ {
		for _, sign := range slotSigns(attempt) {
			y := naturalY + float64(sign*attempt)*step
			if y-h/2 < topY || y+h/2 > bottomY {
				continue
			}
			if !collides(x, y, w, h, placed) {
				return y, true
			}
		}
	}
	return 0, false
}

// slotSigns realises the 0, +k, −k search order.
func slotSigns(attempt int) []int {
	if attempt == 0 {
		return []int{1} // sign irrelevant at offset zero
	}
	return []int{1, -1}
}

// collides reports whether a box at (x,y) is too close to any placed box.
// Overlap requires both horizontal and vertical separation below their
// thresholds.
func collides(x, y, w, h float64, placed []placedBox) bool {
	for _, b := range placed {
		if math.Abs(x-b.x) < (w+b.w)/2 && math.Abs(y-b.y) < (h+b.h)/2 {
			return true
		}
	}
	return false
}
