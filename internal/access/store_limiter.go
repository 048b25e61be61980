package access

import (
	"context"
	"time"
)

// WindowStore persists limiter windows.
type WindowStore interface {
	ReserveWindow(ctx context.Context, client string, now time.Time, window time.Duration) (time.Time, bool, error)
	PurgeExpiredWindows(ctx context.Context, now time.Time) (int64, error)
}

// StoreLimiter keeps windows in the database so they survive restarts.
type StoreLimiter struct {
	Store  WindowStore
	Window time.Duration
	Clock  func() time.Time
}

// Reserve implements Limiter.
func (l *StoreLimiter) Reserve(ctx context.Context, key string) error {
	now := l.now()
	expiry, admitted, err := l.Store.ReserveWindow(ctx, key, now, l.window())
	if err != nil {
		return err
	}
	if !admitted {
		return &RateLimitError{RetryAfter: expiry.Sub(now)}
	}
	return nil
}

// RunSweeper purges expired windows every interval until ctx is done.
func (l *StoreLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = l.Store.PurgeExpiredWindows(ctx, l.now())
		}
	}
}

func (l *StoreLimiter) window() time.Duration {
	if l.Window > 0 {
		return l.Window
	}
	return DefaultWindow
}

func (l *StoreLimiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
