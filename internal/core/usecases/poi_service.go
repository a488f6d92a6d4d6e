package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/pkg/geodesy"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

const maxRadiusMeters = 100000.0

// Bounded in-process cache: oldest cells evict past this, which keeps a
// session that wanders across a city from growing the map forever.
const maxCachedCells = 256

// POIConfig tunes the fetch pipeline.
type POIConfig struct {
	CacheTTL       time.Duration // validity of a fetched cell
	RequestTimeout time.Duration // hard per-request timeout
	MaxAttempts    int           // total tries per fetch, including the first
	BaseBackoff    time.Duration // doubles each retry
	MinSpacing     time.Duration // global floor between provider calls
}

// DefaultPOIConfig mirrors the product defaults: 10 s timeout, 3 attempts,
// 1 s global spacing.
func DefaultPOIConfig() POIConfig {
	return POIConfig{
		CacheTTL:       5 * time.Minute,
		RequestTimeout: 10 * time.Second,
		MaxAttempts:    3,
		BaseBackoff:    500 * time.Millisecond,
		MinSpacing:     time.Second,
	}
}

type poiCell struct {
	pois      []domain.POI
	fetchedAt time.Time
}

type inflightFetch struct {
	done chan struct{}
	pois []domain.POI
	err  error
}

// POIService is the POI store: it returns normalized, deduplicated,
// distance-sorted POI lists for a location and radius while minimizing
// provider calls. It owns the TTL'd cell cache, coalesces concurrent
// identical requests into one provider call, enforces a process-wide minimum
// spacing between provider calls, and retries retriable failures with
// exponential backoff.
//
// A refresh that exhausts its attempts surfaces the error but also returns
// the previous (stale) cell when one exists, so the view degrades to
// stale-but-present data instead of going blank.
type POIService struct {
	provider ports.POIProvider
	shared   ports.CacheService // optional cross-replica cache, may be nil
	clock    ports.Clock
	cfg      POIConfig

	mu          sync.Mutex
	cells       map[string]*poiCell
	inflight    map[string]*inflightFetch
	nextAllowed time.Time // global throttle across all keys
}

// NewPOIService creates a POI store. shared may be nil; clock defaults to
// the system clock when nil.
func NewPOIService(provider ports.POIProvider, shared ports.CacheService, clock ports.Clock, cfg POIConfig) *POIService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &POIService{
		provider: provider,
		shared:   shared,
		clock:    clock,
		cfg:      cfg,
		cells:    make(map[string]*poiCell),
		inflight: make(map[string]*inflightFetch),
	}
}

// CellKey quantizes a location to 3 decimal degrees (~111 m) and combines it
// with the radius, so nearby repeated requests resolve to the same cell.
func CellKey(loc domain.GeoPoint, radiusMeters float64) string {
	return fmt.Sprintf("poi:cell:%.3f:%.3f:%.0f", loc.Lat, loc.Lon, radiusMeters)
}

// FetchNearby returns the distance-sorted POIs around loc within
// radiusMeters, serving from cache when possible.
func (s *POIService) FetchNearby(ctx context.Context, loc domain.GeoPoint, radiusMeters float64) ([]domain.POI, error) {
	if !loc.Valid() {
		return nil, fmt.Errorf("%w: coordinates %+v out of range", domain.ErrInvalidInput, loc)
	}
	if radiusMeters <= 0 || radiusMeters > maxRadiusMeters {
		return nil, fmt.Errorf("%w: radius %v outside (0,%v]", domain.ErrInvalidInput, radiusMeters, maxRadiusMeters)
	}

	key := CellKey(loc, radiusMeters)

	s.mu.Lock()
	if cell, ok := s.cells[key]; ok && s.clock.Now().Sub(cell.fetchedAt) < s.cfg.CacheTTL {
		pois := clonePOIs(cell.pois)
		s.mu.Unlock()
		metrics.POICacheHits.Inc()
		return pois, nil
	}
	if fl, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		metrics.POICoalescedWaits.Inc()
		select {
		case <-fl.done:
			return clonePOIs(fl.pois), fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflightFetch{done: make(chan struct{})}
	s.inflight[key] = fl
	s.mu.Unlock()
	metrics.POICacheMisses.Inc()

	pois, err := s.fetch(ctx, key, loc, radiusMeters)

	s.mu.Lock()
	delete(s.inflight, key)
	if err == nil {
		s.storeCellLocked(key, pois)
	} else if cell, ok := s.cells[key]; ok {
		// Refresh failed: keep the stale cell visible and hand it to the
		// caller alongside the error.
		pois = clonePOIs(cell.pois)
	}
	fl.pois = pois
	fl.err = err
	s.mu.Unlock()
	close(fl.done)

	if err != nil {
		slog.Warn("poi fetch failed", "key", key, "stale_fallback", len(pois) > 0, "error", err)
	}
	return clonePOIs(pois), err
}

// fetch runs the shared-cache check, global throttle, provider call, and
// retry schedule for one cell.
func (s *POIService) fetch(ctx context.Context, key string, loc domain.GeoPoint, radiusMeters float64) ([]domain.POI, error) {
	if pois, ok := s.sharedGet(ctx, key, loc); ok {
		return pois, nil
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Base delay doubles each retry.
			backoff := s.cfg.BaseBackoff << (attempt - 1)
			if err := s.clock.Sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
		if err := s.waitThrottle(ctx); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		start := s.clock.Now()
		pois, err := s.provider.QueryNearby(reqCtx, loc, radiusMeters)
		cancel()
		metrics.ProviderRequestDuration.Observe(s.clock.Now().Sub(start).Seconds())

		if err == nil {
			sort.Slice(pois, func(i, j int) bool {
				return pois[i].DistanceMeters < pois[j].DistanceMeters
			})
			metrics.ProviderRequests.WithLabelValues("ok").Inc()
			s.sharedSet(ctx, key, pois)
			return pois, nil
		}

		lastErr = err
		if !domain.Retriable(err) {
			metrics.ProviderRequests.WithLabelValues("failed").Inc()
			return nil, err
		}
		metrics.ProviderRequests.WithLabelValues("retried").Inc()
	}
	metrics.ProviderRequests.WithLabelValues("exhausted").Inc()
	return nil, fmt.Errorf("provider fetch exhausted %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

// waitThrottle enforces the process-wide minimum spacing between provider
// calls. The budget is shared, so calls for different cells queue behind the
// same clock.
func (s *POIService) waitThrottle(ctx context.Context) error {
	s.mu.Lock()
	now := s.clock.Now()
	wait := s.nextAllowed.Sub(now)
	if wait < 0 {
		wait = 0
	}
	s.nextAllowed = now.Add(wait + s.cfg.MinSpacing)
	s.mu.Unlock()

	if wait > 0 {
		metrics.ProviderThrottleWaits.Inc()
		return s.clock.Sleep(ctx, wait)
	}
	return nil
}

func (s *POIService) sharedGet(ctx context.Context, key string, loc domain.GeoPoint) ([]domain.POI, bool) {
	if s.shared == nil {
		return nil, false
	}
	data, err := s.shared.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var pois []domain.POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return nil, false
	}
	// Another replica fetched this cell from a slightly different point in
	// it; recompute distance and bearing for this viewer.
	rebaseAndSort(pois, loc)
	return pois, true
}

func (s *POIService) sharedSet(ctx context.Context, key string, pois []domain.POI) {
	if s.shared == nil {
		return
	}
	if data, err := json.Marshal(pois); err == nil {
		_ = s.shared.Set(ctx, key, data, int(s.cfg.CacheTTL/time.Second))
	}
}

// storeCellLocked inserts a cell and evicts the oldest one past the bound.
// Caller holds s.mu.
func (s *POIService) storeCellLocked(key string, pois []domain.POI) {
	s.cells[key] = &poiCell{pois: clonePOIs(pois), fetchedAt: s.clock.Now()}
	if len(s.cells) <= maxCachedCells {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, c := range s.cells {
		if oldestKey == "" || c.fetchedAt.Before(oldest) {
			oldestKey, oldest = k, c.fetchedAt
		}
	}
	delete(s.cells, oldestKey)
}

// ClearCache purges all cells, including the shared tier entries this
// replica knows about.
func (s *POIService) ClearCache(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	s.cells = make(map[string]*poiCell)
	s.mu.Unlock()

	if s.shared != nil {
		for _, k := range keys {
			_ = s.shared.Delete(ctx, k)
		}
	}
}

// CacheStats reports entry count plus per-cell age and validity.
func (s *POIService) CacheStats() domain.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	stats := domain.CacheStats{Entries: len(s.cells)}
	for k, c := range s.cells {
		age := now.Sub(c.fetchedAt)
		stats.Cells = append(stats.Cells, domain.CacheEntryInfo{
			Key:       k,
			Count:     len(c.pois),
			Age:       age,
			Valid:     age < s.cfg.CacheTTL,
			FetchedAt: c.fetchedAt,
		})
	}
	sort.Slice(stats.Cells, func(i, j int) bool { return stats.Cells[i].Key < stats.Cells[j].Key })
	return stats
}

func clonePOIs(pois []domain.POI) []domain.POI {
	if pois == nil {
		return nil
	}
	out := make([]domain.POI, len(pois))
	copy(out, pois)
	return out
}

func rebaseAndSort(pois []domain.POI, viewer domain.GeoPoint) {
	for i := range pois {
		if d, err := geodesy.Distance(viewer, pois[i].Location); err == nil {
			pois[i].DistanceMeters = d
		}
		if b, err := geodesy.Bearing(viewer, pois[i].Location); err == nil {
			pois[i].BearingDegrees = b
		}
	}
	sort.Slice(pois, func(i, j int) bool {
		return pois[i].DistanceMeters < pois[j].DistanceMeters
	})
}
