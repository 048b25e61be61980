package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/config"
	"github.com/streamrand/streamrand/internal/core"
	"github.com/streamrand/streamrand/internal/entropy"
	apperrors "github.com/streamrand/streamrand/internal/errors"
)

type segmentFunc func(ctx context.Context, source entropy.Source) ([]byte, error)

func (f segmentFunc) Fetch(ctx context.Context, source entropy.Source) ([]byte, error) {
	return f(ctx, source)
}

type keyTable map[string]*core.APIKey

func (k keyTable) FindKeyByTokenHash(_ context.Context, hash string) (*core.APIKey, error) {
	return k[hash], nil
}

type harness struct {
	handler http.Handler
	token   string
}

func newHarness(t *testing.T, catalog *entropy.Catalog, fetch segmentFunc) harness {
	t.Helper()

	hasher, err := access.NewTokenHasher("test-pepper")
	require.NoError(t, err)
	token, err := access.GenerateToken()
	require.NoError(t, err)

	keys := keyTable{hasher.Hash(token): {ID: "k1", UserID: 7, TokenHash: hasher.Hash(token)}}

	srv := New(config.ServerConfig{Host: "127.0.0.1"}, Dependencies{
		Source: entropy.NewRotation(catalog, fetch),
		Guard: &access.Guard{
			Store:   keys,
			Hasher:  hasher,
			Limiter: access.NewMemoryLimiter(access.DefaultWindow),
		},
		Sampler: entropy.Sampler{IntN: func(int) int { return 0 }},
	})
	return harness{handler: srv.Handler(), token: token}
}

func (h harness) get(path, remote, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	if token != "" {
		req.Header.Set(access.DefaultKeyHeader, token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorDetail {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func staticSegment(buf []byte) segmentFunc {
	return func(context.Context, entropy.Source) ([]byte, error) { return buf, nil }
}

func oneSource() *entropy.Catalog {
	return entropy.NewStaticCatalog(entropy.Source{URL: "https://streams.example/live.m3u8"})
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	h := newHarness(t, oneSource(), staticSegment([]byte{1, 2, 3, 4}))

	rec := h.get("/does-not-exist", "192.0.2.1:5000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, rec).Code)
}

func TestAnonymousClientIsLimitedPerWindow(t *testing.T) {
	h := newHarness(t, oneSource(), staticSegment([]byte{0, 0, 1, 0}))

	rec := h.get("/random/unsigned", "192.0.2.1:5000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["author"])
	assert.EqualValues(t, 256, body["value"])

	rec = h.get("/random/boolean", "192.0.2.1:6000", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	detail := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeRateLimited, detail.Code)
	assert.Contains(t, detail.Message, "seconds before trying again")

	rec = h.get("/random/unsigned", "198.51.100.9:5000", "")
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own window")
}

func TestAuthorizedKeyBypassesLimiter(t *testing.T) {
	h := newHarness(t, oneSource(), staticSegment([]byte{1, 2, 3, 4}))

	require.Equal(t, http.StatusOK, h.get("/random/unsigned", "192.0.2.1:5000", "").Code)
	require.Equal(t, http.StatusTooManyRequests, h.get("/random/unsigned", "192.0.2.1:5000", "").Code)

	for i := 0; i < 3; i++ {
		rec := h.get("/random/color?format=hex", "192.0.2.1:5000", h.token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.EqualValues(t, 7, body["author"])
		assert.EqualValues(t, 0x020304, body["value"])
	}
}

func TestUnknownKeyIsUnauthorized(t *testing.T) {
	h := newHarness(t, oneSource(), staticSegment([]byte{1, 2, 3, 4}))

	rec := h.get("/random/unsigned", "192.0.2.1:5000", "not-a-real-key")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, decodeError(t, rec).Code)
}

func TestEmptyCatalogIsUnavailable(t *testing.T) {
	h := newHarness(t, entropy.NewStaticCatalog(), staticSegment(nil))

	rec := h.get("/random/unsigned", "192.0.2.1:5000", h.token)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeServiceUnavailable, decodeError(t, rec).Code)
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	failing := func(context.Context, entropy.Source) ([]byte, error) {
		return nil, fmt.Errorf("%w: 503 Service Unavailable", entropy.ErrRequest)
	}
	h := newHarness(t, oneSource(), failing)

	rec := h.get("/random/signed", "192.0.2.1:5000", h.token)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apperrors.CodeExternalService, decodeError(t, rec).Code)
}

func TestClientDisconnectIsNotUpstreamFailure(t *testing.T) {
	abandoned := func(ctx context.Context, _ entropy.Source) ([]byte, error) {
		return nil, fmt.Errorf("%w: %w", entropy.ErrRequest, context.Canceled)
	}
	h := newHarness(t, oneSource(), abandoned)

	rec := h.get("/random/unsigned", "192.0.2.1:5000", h.token)
	require.Equal(t, 499, rec.Code)
	assert.Equal(t, apperrors.CodeCanceled, decodeError(t, rec).Code)

	deadline := fmt.Errorf("%w: %w", entropy.ErrRequest, context.DeadlineExceeded)
	assert.Equal(t, apperrors.CodeExternalService, toEnvelope(context.Background(), deadline).Code)
}

func TestToEnvelopeMapping(t *testing.T) {
	ctx := context.Background()
	cases := map[error]string{
		&access.RateLimitError{RetryAfter: 3 * time.Second}: apperrors.CodeRateLimited,
		access.ErrUnauthorized:                              apperrors.CodeUnauthorized,
		access.ErrClientAddress:                             apperrors.CodeInvalidInput,
		access.ErrMalformedCredential:                       apperrors.CodeInternal,
		entropy.ErrEmptyCatalog:                             apperrors.CodeServiceUnavailable,
		entropy.ErrInvalidResponse:                          apperrors.CodeExternalService,
		entropy.ErrShortBuffer:                              apperrors.CodeExternalService,
		context.DeadlineExceeded:                            apperrors.CodeTimeout,
	}
	for err, code := range cases {
		assert.Equal(t, code, toEnvelope(ctx, err).Code, err.Error())
	}
}
