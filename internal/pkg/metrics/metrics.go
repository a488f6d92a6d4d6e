package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lookout",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// POI provider pipeline
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "POI provider calls by outcome (ok, retried, failed, exhausted)",
	}, []string{"outcome"})

	ProviderRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lookout",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "POI provider call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	ProviderThrottleWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "provider",
		Name:      "throttle_waits_total",
		Help:      "Provider calls delayed by the global inter-request spacing",
	})

	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "provider",
		Name:      "records_dropped_total",
		Help:      "Provider records skipped for missing name, coordinates, or external reference",
	})

	// POI cell cache
	POICacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "POI cell cache hits",
	})

	POICacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "POI cell cache misses",
	})

	POICoalescedWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "cache",
		Name:      "coalesced_waits_total",
		Help:      "Callers that joined an in-flight fetch instead of issuing their own",
	})

	// Frame pipeline
	FramesComposed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "frames",
		Name:      "composed_total",
		Help:      "Frames composed across all sessions",
	})

	LabelsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "frames",
		Name:      "labels_placed_total",
		Help:      "Labels that found a collision-free slot",
	})

	LabelsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "frames",
		Name:      "labels_dropped_total",
		Help:      "Labels dropped by the cap or slot-search exhaustion",
	})

	// Sessions
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lookout",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Currently live viewer sessions",
	})

	SensorReadings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "sessions",
		Name:      "sensor_readings_total",
		Help:      "Raw sensor readings ingested",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lookout",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Article lookups
	ArticleLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookout",
		Subsystem: "articles",
		Name:      "lookups_total",
		Help:      "Article lookups by outcome (ok, cached, missing, failed)",
	}, []string{"outcome"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
