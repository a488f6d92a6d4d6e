package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/usecases"
)

func newManagerFixture(t *testing.T) *usecases.SessionManager {
	t.Helper()
	provider := &mockProvider{
		queryFn: func(ctx context.Context, center domain.GeoPoint, radius float64) ([]domain.POI, error) {
			return samplePOIs(), nil
		},
	}
	store := usecases.NewPOIService(provider, nil, newFakeClock(), usecases.DefaultPOIConfig())
	layout := usecases.NewLayoutEngine(usecases.DefaultLayoutConfig())
	return usecases.NewSessionManager(store, layout, nil, 20*time.Millisecond, 8, 2000, time.Minute)
}

func TestSessionManager_CreateGetDelete(t *testing.T) {
	m := newManagerFixture(t)
	defer m.Shutdown()

	s := m.Create(usecases.SessionOptions{})
	if s.ID == "" {
		t.Fatal("expected a session ID")
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Count())
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("expected session %s, got %s", s.ID, got.ID)
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Count() != 0 {
		t.Fatalf("expected no sessions after delete, got %d", m.Count())
	}
	if _, err := m.Get(s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSessionManager_SensorsDriveFrames(t *testing.T) {
	m := newManagerFixture(t)
	defer m.Shutdown()

	s := m.Create(usecases.SessionOptions{ScreenWidth: screenW, ScreenHeight: screenH})

	reading := domain.SensorReading{Heading: 0, Pitch: 5, Roll: 0, Location: &testViewer}
	if err := m.UpdateSensors(s.ID, reading); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.LatestFrame() != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	frame := s.LatestFrame()
	if frame == nil {
		t.Fatal("expected a frame after a position fix")
	}
	if frame.Viewer != testViewer {
		t.Fatalf("expected viewer %+v, got %+v", testViewer, frame.Viewer)
	}
}

func TestSessionManager_RejectsInvalidLocation(t *testing.T) {
	m := newManagerFixture(t)
	defer m.Shutdown()

	s := m.Create(usecases.SessionOptions{})
	bad := domain.GeoPoint{Lat: 95, Lon: 0}
	err := m.UpdateSensors(s.ID, domain.SensorReading{Location: &bad})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSessionManager_UnknownSession(t *testing.T) {
	m := newManagerFixture(t)
	defer m.Shutdown()

	if err := m.UpdateSensors("nope", domain.SensorReading{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Calibrate("nope", 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionManager_ShutdownStopsEverything(t *testing.T) {
	m := newManagerFixture(t)
	m.Create(usecases.SessionOptions{})
	m.Create(usecases.SessionOptions{})
	m.StartSweeper(context.Background())

	m.Shutdown()
	if m.Count() != 0 {
		t.Fatalf("expected no sessions after shutdown, got %d", m.Count())
	}
}
