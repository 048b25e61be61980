package store

import (
	"context"
	"errors"
	"fmt"
)

// migrations are applied in order; the schema version is tracked in
// PRAGMA user_version. Append new steps, never edit applied ones.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			paid_amount REAL NOT NULL DEFAULT 0,
			external_session_id TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_session ON api_keys(external_session_id)
			WHERE external_session_id IS NOT NULL;`,
	},
	{
		`CREATE TABLE IF NOT EXISTS rate_limits (
			client TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rate_limits_expires ON rate_limits(expires_at);`,
	},
}

// SchemaVersion is the version Migrate brings a database to.
func SchemaVersion() int {
	return len(migrations)
}

// Migrate applies every migration newer than the database's schema version.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("store schema version %d is newer than this binary supports (%d)", current, len(migrations))
	}

	for version := current + 1; version <= len(migrations); version++ {
		if err := s.applyMigration(ctx, version, migrations[version-1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(ctx context.Context, version int, statements []string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store migration %d: %w", version, err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration %d failed: %w", version, err)
		}
	}
	// PRAGMA does not accept bound parameters; version is an int we control.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("store migration %d: record version: %w", version, err)
	}
	return tx.Commit()
}
