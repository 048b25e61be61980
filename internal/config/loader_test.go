package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDecodeDefaults(t *testing.T) {
	v := newTestViper(t)

	cfg, err := Decode(v)
	require.NoError(t, err)

	// Verify server defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	// Verify store defaults
	assert.Equal(t, "libsql", cfg.Store.Driver)
	assert.Equal(t, "streamrand.db", filepath.Base(cfg.Store.Path))
	assert.Empty(t, cfg.Store.URL)

	// Verify entropy defaults
	assert.Empty(t, cfg.Entropy.Sources)
	assert.Equal(t, 10*time.Second, cfg.Entropy.FetchTimeout)
	assert.Equal(t, int64(1<<20), cfg.Entropy.MaxManifestBytes)
	assert.Equal(t, int64(32<<20), cfg.Entropy.MaxSegmentBytes)

	// Verify access defaults
	assert.Equal(t, "X-API-Key", cfg.Access.APIKeyHeader)
	assert.False(t, cfg.Access.TrustProxyHeaders)
	assert.Equal(t, LimiterMemory, cfg.Access.Limiter.Backend)
	assert.Equal(t, 30*time.Second, cfg.Access.Limiter.Window)
	assert.Equal(t, time.Minute, cfg.Access.Limiter.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.LimiterWindow())

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.True(t, cfg.Health.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestDecodeConfigFile(t *testing.T) {
	v := newTestViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
entropy:
  sources:
    - /etc/streamrand/sources.json
    - /etc/streamrand/extra.yaml
  fetch_timeout: 3s
access:
  key_pepper: file-pepper
  limiter:
    window: 45s
`), 0o600))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"/etc/streamrand/sources.json", "/etc/streamrand/extra.yaml"}, cfg.Entropy.Sources)
	assert.Equal(t, 3*time.Second, cfg.Entropy.FetchTimeout)
	assert.Equal(t, "file-pepper", cfg.Access.KeyPepper)
	assert.Equal(t, 45*time.Second, cfg.LimiterWindow())
}

func TestDecodeEnvironmentOverrides(t *testing.T) {
	v := newTestViper(t)
	BindEnv(v, "STREAMRAND_")

	t.Setenv("STREAMRAND_SERVER_PORT", "7070")
	t.Setenv("STREAMRAND_ACCESS_KEY_PEPPER", "env-pepper")
	t.Setenv("STREAMRAND_ACCESS_LIMITER_WINDOW", "10s")
	t.Setenv("STREAMRAND_ENTROPY_SOURCES", "a.json,b.yaml")

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-pepper", cfg.Access.KeyPepper)
	assert.Equal(t, 10*time.Second, cfg.Access.Limiter.Window)
	assert.Equal(t, []string{"a.json", "b.yaml"}, cfg.Entropy.Sources)
}

func TestValidate(t *testing.T) {
	t.Run("RedisNeedsURL", func(t *testing.T) {
		v := newTestViper(t)
		v.Set("access.limiter.backend", "redis")

		_, err := Decode(v)
		require.Error(t, err)

		v.Set("access.limiter.redis.url", "redis://localhost:6379/0")
		_, err = Decode(v)
		require.NoError(t, err)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		v := newTestViper(t)
		v.Set("access.limiter.backend", "memcached")

		_, err := Decode(v)
		require.Error(t, err)
	})

	t.Run("StoreBackend", func(t *testing.T) {
		v := newTestViper(t)
		v.Set("access.limiter.backend", "store")

		_, err := Decode(v)
		require.NoError(t, err)
	})
}
