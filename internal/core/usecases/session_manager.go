package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// SessionOptions are the per-viewer knobs a client may set at creation.
// Zero values fall back to the engine defaults.
type SessionOptions struct {
	ScreenWidth    float64 `json:"screen_width"`
	ScreenHeight   float64 `json:"screen_height"`
	RadiusMeters   float64 `json:"radius_meters"`
	CalibrationDeg float64 `json:"calibration_deg"`
}

// Session is one live viewer: its smoothing filter, last position fix, and
// frame driver.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	filter *OrientationFilter
	driver *FrameDriver

	mu       sync.Mutex
	viewer   domain.GeoPoint
	hasFix   bool
	screenW  float64
	screenH  float64
	lastSeen time.Time
}

// Viewer implements ViewerState.
func (s *Session) Viewer() (domain.GeoPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer, s.hasFix
}

// Orientation implements ViewerState.
func (s *Session) Orientation() domain.OrientationSample {
	return s.filter.Snapshot()
}

// Screen implements ViewerState.
func (s *Session) Screen() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenW, s.screenH
}

// LatestFrame returns the session's most recent composed frame.
func (s *Session) LatestFrame() *domain.Frame {
	return s.driver.LatestFrame()
}

// SessionManager owns all live sessions, starts and stops their drivers, and
// sweeps out idle ones.
type SessionManager struct {
	store     *POIService
	layout    *LayoutEngine
	publisher ports.FramePublisher

	tickInterval  time.Duration
	headingWindow int
	defaultRadius float64
	idleTTL       time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewSessionManager wires the manager. tickInterval is the frame cadence;
// idleTTL bounds how long a session without sensor traffic survives.
func NewSessionManager(store *POIService, layout *LayoutEngine, publisher ports.FramePublisher, tickInterval time.Duration, headingWindow int, defaultRadius float64, idleTTL time.Duration) *SessionManager {
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}
	if defaultRadius <= 0 {
		defaultRadius = 2000
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &SessionManager{
		store:         store,
		layout:        layout,
		publisher:     publisher,
		tickInterval:  tickInterval,
		headingWindow: headingWindow,
		defaultRadius: defaultRadius,
		idleTTL:       idleTTL,
		sessions:      make(map[string]*Session),
	}
}

// Create registers a session and starts its frame driver. The driver runs on
// its own context: a session outlives the request that created it and is torn
// down by Delete, the idle sweeper, or Shutdown.
func (m *SessionManager) Create(opts SessionOptions) *Session {
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = 1080
	}
	if opts.ScreenHeight <= 0 {
		opts.ScreenHeight = 1920
	}
	radius := opts.RadiusMeters
	if radius <= 0 {
		radius = m.defaultRadius
	}

	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		filter:    NewOrientationFilter(m.headingWindow, opts.CalibrationDeg),
		screenW:   opts.ScreenWidth,
		screenH:   opts.ScreenHeight,
		lastSeen:  time.Now(),
	}
	s.driver = NewFrameDriver(s.ID, m.tickInterval, radius, s, m.store, m.layout, m.publisher)
	s.driver.Start(context.Background())

	m.mu.Lock()
	m.sessions[s.ID] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	slog.Info("session created", "session", s.ID, "radius_m", radius)
	return s
}

// Get returns a session or ErrNotFound.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s, nil
}

// Delete stops a session's driver and drops it.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s.driver.Stop()
	slog.Info("session deleted", "session", id)
	return nil
}

// UpdateSensors feeds one raw reading into a session's filter and position.
func (m *SessionManager) UpdateSensors(id string, reading domain.SensorReading) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if reading.Location != nil && !reading.Location.Valid() {
		return fmt.Errorf("%w: coordinates %+v out of range", domain.ErrInvalidInput, *reading.Location)
	}

	s.filter.Update(reading.Heading, reading.Pitch, reading.Roll)
	s.mu.Lock()
	if reading.Location != nil {
		s.viewer = *reading.Location
		s.hasFix = true
	}
	s.lastSeen = time.Now()
	s.mu.Unlock()
	metrics.SensorReadings.Inc()
	return nil
}

// Calibrate applies a new compass offset and resets the session's filter.
func (m *SessionManager) Calibrate(id string, offsetDeg float64) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.filter.SetCalibration(offsetDeg)
	slog.Info("session recalibrated", "session", id, "offset_deg", offsetDeg)
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper launches the idle-session reaper. Idempotent.
func (m *SessionManager) StartSweeper(ctx context.Context) {
	m.mu.Lock()
	if m.sweepCancel != nil {
		m.mu.Unlock()
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	m.sweepCancel = cancel
	m.sweepDone = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.sweepDone)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Shutdown stops the sweeper and all session drivers.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	cancel := m.sweepCancel
	done := m.sweepDone
	m.sweepCancel = nil
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	for _, s := range sessions {
		s.driver.Stop()
	}
}

func (m *SessionManager) sweep() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range expired {
		s.driver.Stop()
		slog.Info("idle session expired", "session", s.ID)
	}
}
