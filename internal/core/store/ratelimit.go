package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReserveWindow starts a new limiter window for client unless one is still
// open at now. It returns the expiry of the window in force and whether this
// call opened it.
func (s *Store) ReserveWindow(ctx context.Context, client string, now time.Time, window time.Duration) (time.Time, bool, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	client = strings.TrimSpace(client)
	if client == "" {
		return time.Time{}, false, errors.New("client is required")
	}

	nowMillis := now.UTC().UnixMilli()
	expiry := now.Add(window).UTC()

	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (client, expires_at)
		VALUES (?, ?)
		ON CONFLICT(client) DO UPDATE SET
			expires_at = excluded.expires_at
		WHERE rate_limits.expires_at <= ?
	`, client, expiry.UnixMilli(), nowMillis)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reserve rate limit window: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reserve rate limit window: %w", err)
	}
	if affected > 0 {
		return expiry, true, nil
	}

	var current int64
	row := s.DB.QueryRowContext(ctx, `SELECT expires_at FROM rate_limits WHERE client = ?`, client)
	if err := row.Scan(&current); err != nil {
		return time.Time{}, false, fmt.Errorf("fetch rate limit window: %w", err)
	}
	return time.UnixMilli(current).UTC(), false, nil
}

// PurgeExpiredWindows deletes windows that ended at or before now.
func (s *Store) PurgeExpiredWindows(ctx context.Context, now time.Time) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limits WHERE expires_at <= ?`, now.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge rate limits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rate limits: %w", err)
	}
	return affected, nil
}
