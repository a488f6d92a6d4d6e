package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// EngineConfig is the core tuning surface: field of view, culling, label
// density, frame cadence, and compass calibration.
type EngineConfig struct {
	HFOVDegrees         float64 `mapstructure:"hfov_degrees"`
	VFOVDegrees         float64 `mapstructure:"vfov_degrees"`
	MaxVisibleMeters    float64 `mapstructure:"max_visible_meters"`
	MaxLabels           int     `mapstructure:"max_labels"`
	TickIntervalMs      int     `mapstructure:"tick_interval_ms"`
	HeadingWindow       int     `mapstructure:"heading_window"`
	CalibrationDegrees  float64 `mapstructure:"calibration_degrees"`
	DefaultRadiusMeters float64 `mapstructure:"default_radius_meters"`
	SessionIdleMinutes  int     `mapstructure:"session_idle_minutes"`
}

// ProviderConfig covers the POI data provider fetch pipeline.
type ProviderConfig struct {
	URL              string `mapstructure:"url"`
	CacheTTLMs       int    `mapstructure:"cache_ttl_ms"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BaseBackoffMs    int    `mapstructure:"base_backoff_ms"`
	MinSpacingMs     int    `mapstructure:"min_spacing_ms"`
	UserAgent        string `mapstructure:"user_agent"`
}

type WikipediaConfig struct {
	URL        string `mapstructure:"url"`
	CacheTTLMs int    `mapstructure:"cache_ttl_ms"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("engine.hfov_degrees", 60.0)
	v.SetDefault("engine.vfov_degrees", 45.0)
	v.SetDefault("engine.max_visible_meters", 10000.0)
	v.SetDefault("engine.max_labels", 12)
	v.SetDefault("engine.tick_interval_ms", 50)
	v.SetDefault("engine.heading_window", 8)
	v.SetDefault("engine.calibration_degrees", 0.0)
	v.SetDefault("engine.default_radius_meters", 2000.0)
	v.SetDefault("engine.session_idle_minutes", 10)
	v.SetDefault("provider.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("provider.cache_ttl_ms", 300000)
	v.SetDefault("provider.request_timeout_ms", 10000)
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("provider.base_backoff_ms", 500)
	v.SetDefault("provider.min_spacing_ms", 1000)
	v.SetDefault("provider.user_agent", "lookout-engine/1.0")
	v.SetDefault("wikipedia.url", "https://en.wikipedia.org/api/rest_v1/page/summary")
	v.SetDefault("wikipedia.cache_ttl_ms", 3600000)
	v.SetDefault("wikipedia.timeout_ms", 10000)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LOOKOUT_PROVIDER_URL → provider.url
	v.SetEnvPrefix("LOOKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Engine.HFOVDegrees <= 0 || c.Engine.HFOVDegrees > 180 {
		errs = append(errs, fmt.Sprintf("engine.hfov_degrees must be in (0,180], got %v", c.Engine.HFOVDegrees))
	}
	if c.Engine.MaxVisibleMeters <= 0 {
		errs = append(errs, "engine.max_visible_meters must be positive")
	}
	if c.Engine.MaxLabels <= 0 {
		errs = append(errs, "engine.max_labels must be positive")
	}
	if c.Engine.TickIntervalMs <= 0 {
		errs = append(errs, "engine.tick_interval_ms must be positive")
	}
	if c.Provider.URL == "" {
		errs = append(errs, "provider.url is required")
	}
	if c.Provider.MaxAttempts < 1 {
		errs = append(errs, "provider.max_attempts must be at least 1")
	}
	if c.Provider.RequestTimeoutMs <= 0 {
		errs = append(errs, "provider.request_timeout_ms must be positive")
	}
	if c.Provider.MinSpacingMs < 0 {
		errs = append(errs, "provider.min_spacing_ms must not be negative")
	}
	if c.Wikipedia.URL == "" {
		errs = append(errs, "wikipedia.url is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
