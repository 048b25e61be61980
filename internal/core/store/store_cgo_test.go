//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "libsql", s.Driver())
	assert.NoError(t, s.CheckHealth(ctx))
	require.NoError(t, s.Close())
}

func TestOpenLocalStoreConfiguresSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	assert.Equal(t, 1, s.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	assert.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.GreaterOrEqual(t, busyTimeout, 1000)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Migrate(ctx))

	version, err := s.schemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion(), version)

	for _, table := range []string{"api_keys", "rate_limits"} {
		var name string
		require.NoError(t, s.DB.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name))
		assert.Equal(t, table, name)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.DB.ExecContext(ctx, "PRAGMA user_version = 99")
	require.NoError(t, err)

	assert.ErrorContains(t, s.Migrate(ctx), "newer than this binary supports")
}

func TestCheckHealthClosedStore(t *testing.T) {
	var s *Store
	assert.Error(t, s.CheckHealth(context.Background()))
	assert.NoError(t, s.Close())
}
