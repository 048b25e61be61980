package access

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is how long an anonymous client waits between requests.
const DefaultWindow = 30 * time.Second

// Limiter admits at most one anonymous request per key per window.
type Limiter interface {
	// Reserve admits the request and starts a new window, or returns a
	// *RateLimitError when the key's current window has not expired.
	Reserve(ctx context.Context, key string) error
}

// MemoryLimiter keeps window expiries in process memory.
type MemoryLimiter struct {
	Window time.Duration
	Clock  func() time.Time

	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryLimiter returns a limiter with the given window (DefaultWindow when zero).
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{Window: window}
}

// Reserve implements Limiter.
func (l *MemoryLimiter) Reserve(_ context.Context, key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.expires[key]; ok && now.Before(expiry) {
		return &RateLimitError{RetryAfter: expiry.Sub(now)}
	}

	if l.expires == nil {
		l.expires = make(map[string]time.Time)
	}
	l.expires[key] = now.Add(l.window())
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, expiry := range l.expires {
		if !now.Before(expiry) {
			delete(l.expires, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expires)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *MemoryLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
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
			l.Sweep()
		}
	}
}

func (l *MemoryLimiter) window() time.Duration {
	if l.Window > 0 {
		return l.Window
	}
	return DefaultWindow
}

func (l *MemoryLimiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
