package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/streamrand/streamrand/internal/entropy"
	apperrors "github.com/streamrand/streamrand/internal/errors"
	"github.com/streamrand/streamrand/internal/server/middleware"
)

// Color formats accepted by /random/color.
const (
	ColorFormatRGB = "rgb"
	ColorFormatHex = "hex"
)

// ByteSource yields raw bytes from the current entropy source.
type ByteSource interface {
	NextBytes(ctx context.Context) ([]byte, error)
}

// TimedResponse is the body of every successful /random response.
type TimedResponse struct {
	Author    *int64 `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Value     any    `json:"value"`
}

// RandomHandler serves values sampled from live stream segments.
type RandomHandler struct {
	Source  ByteSource
	Sampler entropy.Sampler
	Now     func() time.Time
}

// Unsigned handles GET /random/unsigned.
func (h *RandomHandler) Unsigned(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(buf []byte) (any, error) {
		return h.Sampler.Unsigned(buf)
	})
}

// Signed handles GET /random/signed.
func (h *RandomHandler) Signed(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(buf []byte) (any, error) {
		return h.Sampler.Signed(buf)
	})
}

// Boolean handles GET /random/boolean.
func (h *RandomHandler) Boolean(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(buf []byte) (any, error) {
		return h.Sampler.Boolean(buf)
	})
}

// Color handles GET /random/color?format=rgb|hex.
func (h *RandomHandler) Color(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = ColorFormatRGB
	}
	if format != ColorFormatRGB && format != ColorFormatHex {
		respondWithError(w, r, apperrors.NewInvalidInputError("Invalid format parameter, expected either rgb or hex"))
		return
	}

	h.serve(w, r, func(buf []byte) (any, error) {
		value, err := h.Sampler.Unsigned(buf)
		if err != nil {
			return nil, err
		}
		color := entropy.ColorFrom(value)
		if format == ColorFormatHex {
			return color.Hex(), nil
		}
		return color, nil
	})
}

func (h *RandomHandler) serve(w http.ResponseWriter, r *http.Request, sample func([]byte) (any, error)) {
	buf, err := h.Source.NextBytes(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	value, err := sample(buf)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var author *int64
	if granted, ok := middleware.AccessFromContext(r.Context()); ok {
		author = granted.Author()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TimedResponse{
		Author:    author,
		Timestamp: h.now().Unix(),
		Value:     value,
	})
}

func (h *RandomHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
