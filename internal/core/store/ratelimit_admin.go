package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streamrand/streamrand/internal/core"
)

// ErrEmptyRateLimitQuery is returned when a query selects nothing explicitly.
var ErrEmptyRateLimitQuery = errors.New("must specify --all, --client, or --prefix")

// RateLimitQuery selects stored limiter windows. Exactly one of All, Client
// or Prefix picks the clients; a non-zero ActiveAt further keeps only windows
// still open at that instant.
type RateLimitQuery struct {
	All      bool
	Client   string
	Prefix   string
	ActiveAt time.Time
}

// Validate reports whether the query names the clients it targets.
func (q RateLimitQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Client) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return ErrEmptyRateLimitQuery
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// filter renders the query as a WHERE clause (possibly empty) and its arguments.
func (q RateLimitQuery) filter() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var (
		conds []string
		args  []any
	)
	switch {
	case q.All:
	case strings.TrimSpace(q.Client) != "":
		conds = append(conds, "client = ?")
		args = append(args, strings.TrimSpace(q.Client))
	default:
		conds = append(conds, `client LIKE ? ESCAPE '\'`)
		args = append(args, likeEscaper.Replace(strings.TrimSpace(q.Prefix))+"%")
	}
	if !q.ActiveAt.IsZero() {
		conds = append(conds, "expires_at > ?")
		args = append(args, q.ActiveAt.UTC().UnixMilli())
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// ListRateLimits returns the windows matching q ordered by client.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]core.RateLimitWindow, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	where, args, err := q.filter()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT client, expires_at FROM rate_limits "+where+" ORDER BY client", args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	windows := []core.RateLimitWindow{}
	for rows.Next() {
		var (
			w         core.RateLimitWindow
			expiresAt int64
		)
		if err := rows.Scan(&w.Client, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		w.ExpiresAt = time.UnixMilli(expiresAt).UTC()
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return windows, nil
}

// CountRateLimits counts the windows matching q.
func (s *Store) CountRateLimits(ctx context.Context, q RateLimitQuery) (int, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := q.filter()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM rate_limits "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rate limits: %w", err)
	}
	return count, nil
}

// ResetRateLimits deletes the windows matching q, letting those clients
// request again immediately.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := q.filter()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, "DELETE FROM rate_limits "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return deleted, nil
}

// ready checks the store is open and fills in a nil context.
func (s *Store) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}
