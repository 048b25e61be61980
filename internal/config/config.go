package config

import "time"

// Config represents the complete application configuration. Values come from
// (lowest to highest precedence) built-in defaults, the user config file,
// STREAMRAND_* environment variables, and command-line flags.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Entropy EntropyConfig `mapstructure:"entropy"`
	Access  AccessConfig  `mapstructure:"access"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// EntropyConfig controls where random bytes come from.
type EntropyConfig struct {
	// Sources lists source description files (JSON or YAML).
	Sources []string `mapstructure:"sources"`

	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	MaxManifestBytes int64         `mapstructure:"max_manifest_bytes"`
	MaxSegmentBytes  int64         `mapstructure:"max_segment_bytes"`
}

// AccessConfig controls API key checks and anonymous rate limiting.
type AccessConfig struct {
	APIKeyHeader string `mapstructure:"api_key_header"`

	// KeyPepper keys the HMAC used to store API keys. Changing it
	// invalidates every issued key.
	KeyPepper string `mapstructure:"key_pepper"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`

	Limiter LimiterConfig `mapstructure:"limiter"`
}

// LimiterConfig selects and tunes the anonymous request limiter.
type LimiterConfig struct {
	// Backend is one of: memory, redis, store
	Backend       string        `mapstructure:"backend"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains connection settings for the redis limiter backend.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles per Fulmen Forge Workhorse Standard:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}
