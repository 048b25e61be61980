package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/config"
)

func TestResolveLocation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		cfg   config.StoreConfig
		want  string
		local bool
	}{
		{
			name: "remote url gets auth token",
			cfg:  config.StoreConfig{URL: "libsql://keys.turso.io", AuthToken: "token123"},
			want: "libsql://keys.turso.io?authToken=token123",
		},
		{
			name: "existing query is kept",
			cfg:  config.StoreConfig{URL: "libsql://keys.turso.io?foo=bar", AuthToken: "token123"},
			want: "libsql://keys.turso.io?authToken=token123&foo=bar",
		},
		{
			name: "explicit auth token in url wins",
			cfg:  config.StoreConfig{URL: "libsql://keys.turso.io?authToken=inline", AuthToken: "token123"},
			want: "libsql://keys.turso.io?authToken=inline",
		},
		{
			name:  "file prefix kept",
			cfg:   config.StoreConfig{Path: "file:" + filepath.Join(dir, "a", "streamrand.db")},
			want:  "file:" + filepath.Join(dir, "a", "streamrand.db"),
			local: true,
		},
		{
			name:  "bare path gets file prefix",
			cfg:   config.StoreConfig{Path: filepath.Join(dir, "b", "..", "streamrand.db")},
			want:  "file:" + filepath.Join(dir, "streamrand.db"),
			local: true,
		},
		{
			name: "memory",
			cfg:  config.StoreConfig{Path: ":memory:"},
			want: ":memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := resolveLocation(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.dsn)
			assert.Equal(t, tt.local, loc.local)
		})
	}

	assert.DirExists(t, filepath.Join(dir, "a"))
}

func TestResolveLocationRequiresTarget(t *testing.T) {
	_, err := resolveLocation(config.StoreConfig{Path: "   "})
	assert.Error(t, err)
}

func TestResolveLocationURLWinsOverPath(t *testing.T) {
	loc, err := resolveLocation(config.StoreConfig{
		URL:  "libsql://keys.turso.io",
		Path: "/var/lib/streamrand/streamrand.db",
	})
	require.NoError(t, err)
	assert.Equal(t, "libsql://keys.turso.io", loc.dsn)
	assert.False(t, loc.local)
}
