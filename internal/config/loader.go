// Package config provides centralized configuration management for streamrand.
// Settings are layered with viper: built-in defaults, the user config file
// (discovered via app identity), STREAMRAND_* environment variables, and
// bound command-line flags.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/streamrand/streamrand/internal/appid"
)

// Limiter backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
	LimiterStore  = "store"
)

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Entropy defaults
	v.SetDefault("entropy.sources", []string{})
	v.SetDefault("entropy.fetch_timeout", "10s")
	v.SetDefault("entropy.max_manifest_bytes", 1<<20)
	v.SetDefault("entropy.max_segment_bytes", 32<<20)

	// Access defaults
	v.SetDefault("access.api_key_header", "X-API-Key")
	v.SetDefault("access.key_pepper", "")
	v.SetDefault("access.trust_proxy_headers", false)
	v.SetDefault("access.limiter.backend", LimiterMemory)
	v.SetDefault("access.limiter.window", "30s")
	v.SetDefault("access.limiter.sweep_interval", "1m")
	v.SetDefault("access.limiter.redis.url", "")
	v.SetDefault("access.limiter.redis.key_prefix", "streamrand:ratelimit")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// BindEnv makes every known key overridable as {PREFIX}{SECTION}_{KEY},
// e.g. STREAMRAND_ACCESS_KEY_PEPPER.
func BindEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the process-wide viper instance into a Config.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	cfg, err := Decode(viper.GetViper())
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode unmarshals the settings held by v and validates them.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Access.Limiter.Backend)) {
	case "", LimiterMemory, LimiterStore:
	case LimiterRedis:
		if strings.TrimSpace(c.Access.Limiter.Redis.URL) == "" {
			return fmt.Errorf("access.limiter.redis.url is required for the redis limiter")
		}
	default:
		return fmt.Errorf("unsupported limiter backend: %s", c.Access.Limiter.Backend)
	}

	if c.Access.Limiter.Window < 0 {
		return fmt.Errorf("access.limiter.window must not be negative")
	}
	if c.Entropy.FetchTimeout < 0 {
		return fmt.Errorf("entropy.fetch_timeout must not be negative")
	}
	return nil
}

// LimiterWindow returns the configured window or the 30s default.
func (c *Config) LimiterWindow() time.Duration {
	if c.Access.Limiter.Window > 0 {
		return c.Access.Limiter.Window
	}
	return 30 * time.Second
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "streamrand" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "streamrand"
	binaryName = "streamrand"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
