package domain

import (
	"time"
)

// POI is a named real-world location that can be labelled in the camera view.
// Distance and bearing are relative to the viewer position used for the fetch
// and are recomputed whenever the cell is refreshed.
type POI struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       GeoPoint `json:"location"`
	DistanceMeters float64  `json:"distance_meters"`
	BearingDegrees float64  `json:"bearing_degrees"`
	ExternalRef    string   `json:"external_ref,omitempty"` // article lookup key
}

// OrientationSample is the smoothed device orientation at one instant.
// Heading is clockwise from north in [0,360).
type OrientationSample struct {
	HeadingDegrees float64 `json:"heading_degrees"`
	PitchDegrees   float64 `json:"pitch_degrees"`
	RollDegrees    float64 `json:"roll_degrees"`
}

// SensorReading is a raw, unsmoothed reading from the device.
type SensorReading struct {
	Heading  float64   `json:"heading"`
	Pitch    float64   `json:"pitch"`
	Roll     float64   `json:"roll"`
	Location *GeoPoint `json:"location,omitempty"`
}

// LabelPlacement is one resolved on-screen label for a frame. Transient:
// recomputed every tick, never carried across frames.
type LabelPlacement struct {
	POI     POI     `json:"poi"`
	ScreenX float64 `json:"screen_x"`
	ScreenY float64 `json:"screen_y"`
	Scale   float64 `json:"scale"`
	ZRank   int     `json:"z_rank"`
}

// Frame is the per-tick output handed to the renderer: placements ordered
// nearest first, with nearer labels stacking above farther ones.
type Frame struct {
	SessionID   string            `json:"session_id"`
	Tick        uint64            `json:"tick"`
	At          time.Time         `json:"at"`
	Viewer      GeoPoint          `json:"viewer"`
	Orientation OrientationSample `json:"orientation"`
	Placements  []LabelPlacement  `json:"placements"`
	Candidates  int               `json:"candidates"` // POIs before culling
}

// Article is the resolved text content for a POI's external reference.
type Article struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	ImageURL     string    `json:"image_url,omitempty"`
	CanonicalURL string    `json:"canonical_url"`
	Coordinates  *GeoPoint `json:"coordinates,omitempty"`
}

// CacheEntryInfo describes one cached POI cell for diagnostics.
type CacheEntryInfo struct {
	Key       string        `json:"key"`
	Count     int           `json:"count"`
	Age       time.Duration `json:"age"`
	Valid     bool          `json:"valid"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// CacheStats is a snapshot of the POI cell cache.
type CacheStats struct {
	Entries int              `json:"entries"`
	Cells   []CacheEntryInfo `json:"cells"`
}
