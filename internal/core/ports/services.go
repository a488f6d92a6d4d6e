package ports

import (
	"context"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
)

// FramePublisher fans out per-tick label placements to renderer clients,
// typically via a message broker so WebSocket relays on any replica can
// deliver them.
type FramePublisher interface {
	PublishFrame(ctx context.Context, frame *domain.Frame) error
}

// CacheService provides shared read-through caching across engine replicas.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Clock abstracts wall time and delays so throttle and backoff behaviour can
// be tested against a fake clock.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
