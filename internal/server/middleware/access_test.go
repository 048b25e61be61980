package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/core"
	"github.com/streamrand/streamrand/internal/metrics"
)

type authorizerFunc func(ctx context.Context, r *http.Request) (core.Access, error)

func (f authorizerFunc) Authorize(ctx context.Context, r *http.Request) (core.Access, error) {
	return f(ctx, r)
}

func TestAccessAdmitsAndStoresDecision(t *testing.T) {
	collector := setupTelemetry(t)

	key := &core.APIKey{ID: "k1", UserID: 42}
	guard := authorizerFunc(func(context.Context, *http.Request) (core.Access, error) {
		return core.Access{Tier: core.TierAuthorized, Key: key}, nil
	})

	var seen core.Access
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		seen, ok = AccessFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	respond := func(http.ResponseWriter, *http.Request, error) {
		t.Fatal("responder must not be called for admitted requests")
	}

	rec := httptest.NewRecorder()
	Access(guard, respond)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/random/unsigned", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.TierAuthorized, seen.Tier)
	assert.Equal(t, int64(42), *seen.Author())
	assert.Greater(t, collector.CountMetricsByName(metrics.AccessDecisions), 0)
}

func TestAccessRejectionGoesToResponder(t *testing.T) {
	setupTelemetry(t)

	limited := &access.RateLimitError{RetryAfter: 12 * time.Second}
	guard := authorizerFunc(func(context.Context, *http.Request) (core.Access, error) {
		return core.Access{}, limited
	})

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for rejected requests")
	})

	var got error
	respond := func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTooManyRequests)
	}

	rec := httptest.NewRecorder()
	Access(guard, respond)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/random/unsigned", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Same(t, limited, got)
}

func TestClassifyRejection(t *testing.T) {
	cases := []struct {
		err     error
		tier    string
		outcome string
	}{
		{&access.RateLimitError{RetryAfter: time.Second}, "anonymous", "rate_limited"},
		{access.ErrClientAddress, "anonymous", "bad_address"},
		{access.ErrUnauthorized, "authorized", "unauthorized"},
		{access.ErrMalformedCredential, "authorized", "malformed"},
		{errors.New("database is locked"), "unknown", "error"},
	}
	for _, tc := range cases {
		tier, outcome := classifyRejection(tc.err)
		assert.Equal(t, tc.tier, tier, tc.err.Error())
		assert.Equal(t, tc.outcome, outcome, tc.err.Error())
	}
}

func TestAccessFromContextMissing(t *testing.T) {
	_, ok := AccessFromContext(context.Background())
	assert.False(t, ok)
}
