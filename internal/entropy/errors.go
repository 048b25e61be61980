package entropy

import "errors"

var (
	// ErrInvalidHeader reports a source header that is not valid HTTP syntax.
	ErrInvalidHeader = errors.New("invalid source header")

	// ErrRequest reports a failed manifest or segment request.
	ErrRequest = errors.New("source request failed")

	// ErrInvalidResponse reports an empty or fully commented manifest.
	ErrInvalidResponse = errors.New("an empty playlist or invalid response was received from the server")

	// ErrEmptyCatalog is returned when no source could be loaded.
	ErrEmptyCatalog = errors.New("no entropy sources loaded")

	// ErrShortBuffer is returned when a buffer is too small to sample from.
	ErrShortBuffer = errors.New("buffer too short to sample")
)
