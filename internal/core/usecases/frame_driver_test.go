package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/usecases"
)

// --- Fake ViewerState ---

type fakeViewerState struct {
	mu     sync.Mutex
	viewer domain.GeoPoint
	hasFix bool
	orient domain.OrientationSample
}

func (s *fakeViewerState) Viewer() (domain.GeoPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer, s.hasFix
}

func (s *fakeViewerState) Orientation() domain.OrientationSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orient
}

func (s *fakeViewerState) Screen() (float64, float64) { return screenW, screenH }

// --- Fake FramePublisher ---

type fakePublisher struct {
	mu     sync.Mutex
	frames []*domain.Frame
}

func (p *fakePublisher) PublishFrame(ctx context.Context, frame *domain.Frame) error {
	p.mu.Lock()
	p.frames = append(p.frames, frame)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func newDriverFixture(t *testing.T, state usecases.ViewerState, pub *fakePublisher) *usecases.FrameDriver {
	t.Helper()
	provider := &mockProvider{
		queryFn: func(ctx context.Context, center domain.GeoPoint, radius float64) ([]domain.POI, error) {
			return []domain.POI{
				poiAt(t, testViewer, 0, 500, "a"),
				poiAt(t, testViewer, 10, 1500, "b"),
			}, nil
		},
	}
	store := usecases.NewPOIService(provider, nil, newFakeClock(), usecases.DefaultPOIConfig())
	layout := usecases.NewLayoutEngine(usecases.DefaultLayoutConfig())
	return usecases.NewFrameDriver("sess-1", 10*time.Millisecond, 2000, state, store, layout, pub)
}

func TestFrameDriver_PublishesFrames(t *testing.T) {
	state := &fakeViewerState{viewer: testViewer, hasFix: true}
	pub := &fakePublisher{}
	driver := newDriverFixture(t, state, pub)

	driver.Start(context.Background())
	defer driver.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f := driver.LatestFrame(); f != nil && f.Candidates == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	frame := driver.LatestFrame()
	if frame == nil {
		t.Fatal("expected a composed frame")
	}
	if frame.SessionID != "sess-1" {
		t.Errorf("expected session sess-1, got %s", frame.SessionID)
	}
	if frame.Tick == 0 {
		t.Error("expected tick counter to advance")
	}
	if frame.Candidates != 2 {
		t.Errorf("expected 2 candidates after refresh, got %d", frame.Candidates)
	}
	if len(frame.Placements) == 0 {
		t.Error("expected placements in the composed frame")
	}
	if pub.count() == 0 {
		t.Error("expected frames on the publisher")
	}
}

func TestFrameDriver_NoFrameWithoutFix(t *testing.T) {
	state := &fakeViewerState{hasFix: false}
	pub := &fakePublisher{}
	driver := newDriverFixture(t, state, pub)

	driver.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	driver.Stop()

	if driver.LatestFrame() != nil {
		t.Fatal("expected no frame before a position fix")
	}
	if pub.count() != 0 {
		t.Fatalf("expected no published frames, got %d", pub.count())
	}
}

func TestFrameDriver_StartStopIdempotent(t *testing.T) {
	state := &fakeViewerState{viewer: testViewer, hasFix: true}
	driver := newDriverFixture(t, state, &fakePublisher{})

	driver.Start(context.Background())
	driver.Start(context.Background()) // no-op on a running driver
	driver.Stop()
	driver.Stop() // safe to repeat

	// Restartable after a stop.
	driver.Start(context.Background())
	driver.Stop()
}

func TestFrameDriver_TicksOutpaceSlowFetch(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		queryFn: func(ctx context.Context, center domain.GeoPoint, radius float64) ([]domain.POI, error) {
			<-release
			return nil, nil
		},
	}
	store := usecases.NewPOIService(provider, nil, newFakeClock(), usecases.DefaultPOIConfig())
	layout := usecases.NewLayoutEngine(usecases.DefaultLayoutConfig())
	state := &fakeViewerState{viewer: testViewer, hasFix: true}
	pub := &fakePublisher{}
	driver := usecases.NewFrameDriver("sess-2", 10*time.Millisecond, 2000, state, store, layout, pub)

	driver.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	published := pub.count()
	close(release)
	driver.Stop()

	// The provider never answered during the window, yet frames kept flowing.
	if published < 3 {
		t.Fatalf("expected ticks to continue during a hung fetch, got %d frames", published)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("expected one in-flight fetch, got %d", got)
	}
}
