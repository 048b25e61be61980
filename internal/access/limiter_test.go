package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := &MemoryLimiter{Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Reserve(ctx, "203.0.113.7"))

	clock.Advance(10 * time.Second)
	err := limiter.Reserve(ctx, "203.0.113.7")
	var limited *RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 20*time.Second, limited.RetryAfter)
	assert.Equal(t, 20, limited.Seconds())
	assert.Contains(t, limited.Error(), "20 seconds")

	// Other clients are independent.
	require.NoError(t, limiter.Reserve(ctx, "198.51.100.1"))

	clock.Advance(20 * time.Second)
	require.NoError(t, limiter.Reserve(ctx, "203.0.113.7"))
}

func TestMemoryLimiterRejectionKeepsWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := &MemoryLimiter{Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Reserve(ctx, "a"))
	clock.Advance(29 * time.Second)
	require.Error(t, limiter.Reserve(ctx, "a"))

	// A rejected request does not extend the window.
	clock.Advance(time.Second)
	require.NoError(t, limiter.Reserve(ctx, "a"))
}

func TestMemoryLimiterCustomWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := &MemoryLimiter{Window: 5 * time.Second, Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Reserve(ctx, "a"))
	clock.Advance(5 * time.Second)
	require.NoError(t, limiter.Reserve(ctx, "a"))
}

func TestMemoryLimiterSweep(t *testing.T) {
	clock := newFakeClock()
	limiter := &MemoryLimiter{Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Reserve(ctx, "a"))
	clock.Advance(15 * time.Second)
	require.NoError(t, limiter.Reserve(ctx, "b"))
	assert.Equal(t, 2, limiter.Len())

	clock.Advance(15 * time.Second)
	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 1, limiter.Len())

	clock.Advance(15 * time.Second)
	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 0, limiter.Len())
}

func TestMemoryLimiterRunSweeperStops(t *testing.T) {
	limiter := NewMemoryLimiter(time.Millisecond)
	require.NoError(t, limiter.Reserve(context.Background(), "a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRateLimitErrorSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, (&RateLimitError{RetryAfter: 0}).Seconds())
	assert.Equal(t, 1, (&RateLimitError{RetryAfter: 300 * time.Millisecond}).Seconds())
	assert.Equal(t, 30, (&RateLimitError{RetryAfter: 29*time.Second + time.Millisecond}).Seconds())
}
