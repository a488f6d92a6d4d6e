package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lookoutar/lookout/internal/adapters/http"
	natsadapter "github.com/lookoutar/lookout/internal/adapters/nats"
	"github.com/lookoutar/lookout/internal/adapters/overpass"
	"github.com/lookoutar/lookout/internal/adapters/valkey"
	"github.com/lookoutar/lookout/internal/adapters/wikipedia"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/core/usecases"
	"github.com/lookoutar/lookout/internal/pkg/config"
	"github.com/lookoutar/lookout/internal/pkg/logging"
	"github.com/lookoutar/lookout/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("lookout-engine")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("lookout-engine", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Shared cache. The engine degrades to in-memory cells without it.
	var sharedCache ports.CacheService
	var cache *valkey.Cache
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, running with memory cache only", "error", err)
	} else {
		cache = c
		sharedCache = c
		defer cache.Close()
	}

	// NATS frame fan-out. Also optional.
	var framePublisher ports.FramePublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, frames served over HTTP only", "error", err)
	} else {
		framePublisher = publisher
		defer publisher.Close()
	}

	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Providers
	poiProvider := overpass.New(cfg.Provider.URL, cfg.Provider.UserAgent,
		time.Duration(cfg.Provider.RequestTimeoutMs)*time.Millisecond)
	articleProvider := wikipedia.New(cfg.Wikipedia.URL, sharedCache,
		time.Duration(cfg.Wikipedia.CacheTTLMs)*time.Millisecond,
		time.Duration(cfg.Wikipedia.TimeoutMs)*time.Millisecond)

	// Use cases
	poiSvc := usecases.NewPOIService(poiProvider, sharedCache, ports.SystemClock{}, usecases.POIConfig{
		CacheTTL:       time.Duration(cfg.Provider.CacheTTLMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Provider.RequestTimeoutMs) * time.Millisecond,
		MaxAttempts:    cfg.Provider.MaxAttempts,
		BaseBackoff:    time.Duration(cfg.Provider.BaseBackoffMs) * time.Millisecond,
		MinSpacing:     time.Duration(cfg.Provider.MinSpacingMs) * time.Millisecond,
	})

	layoutCfg := usecases.DefaultLayoutConfig()
	layoutCfg.HFOVDeg = cfg.Engine.HFOVDegrees
	layoutCfg.VFOVDeg = cfg.Engine.VFOVDegrees
	layoutCfg.MaxVisibleMeters = cfg.Engine.MaxVisibleMeters
	layoutCfg.MaxLabels = cfg.Engine.MaxLabels
	layout := usecases.NewLayoutEngine(layoutCfg)

	sessions := usecases.NewSessionManager(poiSvc, layout, framePublisher,
		time.Duration(cfg.Engine.TickIntervalMs)*time.Millisecond,
		cfg.Engine.HeadingWindow,
		cfg.Engine.DefaultRadiusMeters,
		time.Duration(cfg.Engine.SessionIdleMinutes)*time.Minute)
	sessions.StartSweeper(ctx)
	defer sessions.Shutdown()

	deps := &http.Dependencies{
		Sessions: sessions,
		POIs:     poiSvc,
		Articles: articleProvider,
		NATS:     natsConn,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024, // sensor payloads are tiny
		AppName:      "Lookout Engine",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("engine starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("engine stopped")
}
