package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// ViewerState supplies the latest position and smoothed orientation
// snapshot. The driver samples it at its own cadence and must never block on
// sensor arrival, so implementations return immediately with whatever is
// current.
type ViewerState interface {
	Viewer() (domain.GeoPoint, bool) // false until a first fix arrives
	Orientation() domain.OrientationSample
	Screen() (w, h float64)
}

// FrameDriver runs the fixed-interval tick loop for one session: sample
// viewer state, refresh the POI cell in the background, compose a frame,
// publish it. Start and Stop are idempotent and leak no tickers.
type FrameDriver struct {
	sessionID string
	interval  time.Duration
	radius    float64

	state     ViewerState
	store     *POIService
	layout    *LayoutEngine
	publisher ports.FramePublisher

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	tick     uint64
	pois     []domain.POI
	fetching bool
	last     *domain.Frame
}

// NewFrameDriver wires a driver for one session.
func NewFrameDriver(sessionID string, interval time.Duration, radiusMeters float64, state ViewerState, store *POIService, layout *LayoutEngine, publisher ports.FramePublisher) *FrameDriver {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &FrameDriver{
		sessionID: sessionID,
		interval:  interval,
		radius:    radiusMeters,
		state:     state,
		store:     store,
		layout:    layout,
		publisher: publisher,
	}
}

// Start begins the tick loop. Calling Start on a running driver is a no-op.
func (d *FrameDriver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(runCtx)
}

// Stop halts the loop and waits for the in-flight tick. Safe to call more
// than once and safe to Start again afterwards.
func (d *FrameDriver) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	d.wg.Wait()
}

// LatestFrame returns the most recently composed frame, or nil before the
// first tick with a position fix.
func (d *FrameDriver) LatestFrame() *domain.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *FrameDriver) run(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.step(ctx)
		}
	}
}

func (d *FrameDriver) step(ctx context.Context) {
	viewer, ok := d.state.Viewer()
	if !ok {
		return // no GPS fix yet, nothing to anchor labels to
	}
	orient := d.state.Orientation()
	w, h := d.state.Screen()

	d.maybeRefresh(ctx, viewer)

	d.mu.Lock()
	pois := d.pois
	d.tick++
	tick := d.tick
	d.mu.Unlock()

	frame := &domain.Frame{
		SessionID:   d.sessionID,
		Tick:        tick,
		At:          time.Now(),
		Viewer:      viewer,
		Orientation: orient,
		Placements:  d.layout.Compose(pois, viewer, orient, w, h),
		Candidates:  len(pois),
	}

	d.mu.Lock()
	d.last = frame
	d.mu.Unlock()

	metrics.FramesComposed.Inc()
	if d.publisher != nil {
		if err := d.publisher.PublishFrame(ctx, frame); err != nil {
			slog.Debug("frame publish failed", "session", d.sessionID, "error", err)
		}
	}
}

// maybeRefresh kicks off an asynchronous POI fetch for the viewer's cell.
// The tick itself never waits on the network; coalescing in the store keeps
// concurrent ticks from duplicating work, and a failed refresh leaves the
// previous POI set in place.
func (d *FrameDriver) maybeRefresh(ctx context.Context, viewer domain.GeoPoint) {
	d.mu.Lock()
	if d.fetching {
		d.mu.Unlock()
		return
	}
	d.fetching = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pois, err := d.store.FetchNearby(ctx, viewer, d.radius)

		d.mu.Lock()
		d.fetching = false
		if err == nil || len(pois) > 0 {
			d.pois = pois
		}
		d.mu.Unlock()
	}()
}
