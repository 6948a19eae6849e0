// Package config defines the process-wide configuration for the rainparade
// service. Configuration is loaded once at startup and is immutable
// thereafter, following 12-Factor principles: all values come from the
// environment (optionally seeded by a local .env file), and any missing
// required value or invalid format fails the process immediately.
package config

import (
	"time"

	"rainparade/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used in configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Populated once during
// process initialization and never modified. Sub-components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Model    ModelConfig
	Database DatabaseConfig
	Geocode  GeocodeConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Token-bucket rate limit applied per process.
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ModelConfig locates the pretrained model artifact. An empty or unreadable
// path is not a startup failure: the service degrades to the seasonal
// fallback simulator and flags every result as simulated.
type ModelConfig struct {
	ArtifactPath string `envconfig:"MODEL_ARTIFACT_PATH" default:"ml/weather_model.json.zst"`
}

// DatabaseConfig holds the optional Postgres connection used by the geocode
// cache. When URL is empty the service falls back to an in-memory cache.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// GeocodeConfig holds settings for the outbound reverse-geocoding client.
type GeocodeConfig struct {
	BaseURL   string        `envconfig:"NOMINATIM_BASE_URL" default:"https://nominatim.openstreetmap.org" validate:"url"`
	Timeout   time.Duration `envconfig:"NOMINATIM_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"NOMINATIM_USER_AGENT" default:"rainparade/1.0"`

	// Nominatim's usage policy caps anonymous clients at one request per
	// second; the outbound limiter enforces it.
	UpstreamRPS float64 `envconfig:"NOMINATIM_RPS" default:"1"`

	CacheTTL time.Duration `envconfig:"GEOCODE_CACHE_TTL" default:"720h"`
}

// MetricsConfig controls the optional CloudWatch metrics collector.
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"Rainparade/API"`
	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`
}
