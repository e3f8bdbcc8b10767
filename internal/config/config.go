package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every runtime setting, populated from the environment.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// DatabaseDriver is "postgres" or "sqlite". The sqlite driver exists for
	// local development; production runs against postgres.
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN" default:"file:drivelane.db?cache=shared"`

	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`

	ReconcilerEnabled      bool          `envconfig:"RECONCILER_ENABLED" default:"true"`
	ReconcilerPollInterval time.Duration `envconfig:"RECONCILER_POLL_INTERVAL" default:"30s"`
	ReconcilerGracePeriod  time.Duration `envconfig:"RECONCILER_GRACE_PERIOD" default:"5m"`
	ReconcilerBatchSize    int           `envconfig:"RECONCILER_BATCH_SIZE" default:"50"`

	TracingEnabled          bool    `envconfig:"TRACING_ENABLED" default:"false"`
	TracingExporterEndpoint string  `envconfig:"TRACING_EXPORTER_ENDPOINT" default:""`
	TracingSamplingRatio    float64 `envconfig:"TRACING_SAMPLING_RATIO" default:"1.0"`

	OfferCacheTTL time.Duration `envconfig:"OFFER_CACHE_TTL" default:"1m"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
