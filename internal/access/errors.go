package access

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when a presented key matches no stored credential.
	ErrUnauthorized = errors.New("invalid api key")

	// ErrClientAddress is returned when an anonymous request has no usable client IP.
	ErrClientAddress = errors.New("client address unavailable")

	// ErrMalformedCredential is returned when the credential header cannot be read as text.
	ErrMalformedCredential = errors.New("credential header is not valid text")
)

// RateLimitError reports a rejected anonymous request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: please wait %d seconds before trying again", e.Seconds())
}

// Seconds returns RetryAfter rounded up to whole seconds, at least 1.
func (e *RateLimitError) Seconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
