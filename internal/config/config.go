// Package config loads service configuration from the environment and
// the spots file.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds configuration shared by the analyzer, API and importer
type Config struct {
	// Database
	DatabasePath string `env:"SQLITE_DATABASE" envDefault:"data/nextwave.db" validate:"required"`

	// Spots
	SpotsFile string `env:"SPOTS_FILE" envDefault:"spots.yml" validate:"required"`

	// Analysis loop
	AnalyzeInterval   time.Duration `env:"ANALYZE_INTERVAL" envDefault:"15m" validate:"gte=1s"`
	RetentionDuration time.Duration `env:"RETENTION_DURATION" envDefault:"720h" validate:"gte=1h"`
	Concurrency       int           `env:"ANALYZE_CONCURRENCY" envDefault:"4" validate:"min=1,max=64"`

	// Sun times
	SunAPIBaseURL string        `env:"SUN_API_BASE_URL" envDefault:"https://api.sunrise-sunset.org" validate:"required,url"`
	SunAPITimeout time.Duration `env:"SUN_API_TIMEOUT" envDefault:"10s" validate:"gte=100ms"`
	Timezone      string        `env:"TIMEZONE" envDefault:"Europe/Zurich" validate:"required,timezone"`

	// Static schedule refresh (optional)
	GTFSStaticURL     string `env:"GTFS_STATIC_URL" validate:"omitempty,url"`
	GTFSNetwork       string `env:"GTFS_NETWORK" envDefault:"sgv" validate:"required"`
	CacheDir          string `env:"CACHE_DIR" envDefault:"data/cache" validate:"required"`
	StaticRefreshDays int    `env:"STATIC_REFRESH_DAYS" envDefault:"7" validate:"min=1"`

	// Realtime (optional)
	GTFSTripUpdatesURL string `env:"GTFS_TRIP_UPDATES_URL" validate:"omitempty,url"`

	// HTTP API
	HTTPPort       int      `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// Observability
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat         string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
	TelemetryEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadDotEnv loads base and local override env files. Missing files are ignored.
func LoadDotEnv(base, local string) {
	_ = godotenv.Load(base)
	_ = godotenv.Overload(local)
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ListenAddr returns the HTTP listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
