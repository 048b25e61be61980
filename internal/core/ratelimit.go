package core

import "time"

// RateLimitWindow is one anonymous client's open limiter window.
type RateLimitWindow struct {
	Client    string    `json:"client"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Remaining returns how long the window stays open after now.
func (w RateLimitWindow) Remaining(now time.Time) time.Duration {
	if d := w.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
