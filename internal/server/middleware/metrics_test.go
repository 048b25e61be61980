package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/metrics"
	"github.com/streamrand/streamrand/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	return collector
}

func TestRequestMetricsEmitsRequestSeries(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/random/boolean", strings.NewReader("ignored"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"value":true}`, rec.Body.String())
	for _, name := range []string{
		metrics.HTTPRequestsTotal,
		metrics.HTTPRequestDuration,
		metrics.HTTPRequestSize,
		metrics.HTTPResponseSize,
	} {
		assert.Greater(t, collector.CountMetricsByName(name), 0, name)
	}
	assert.Zero(t, collector.CountMetricsByName(metrics.HTTPErrorsTotal))
}

func TestRequestMetricsCountsErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		collector := setupTelemetry(t)

		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/unsigned", nil))

		assert.Greater(t, collector.CountMetricsByName(metrics.HTTPErrorsTotal), 0, "status %d", status)
	}
}

func TestRequestMetricsWithTelemetryDisabled(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEndpointPatternStandardPaths(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health", "/health/*"},
		{"/health/live", "/health/*"},
		{"/health/ready", "/health/*"},
		{"/health/startup", "/health/*"},
		{"/version", "/version"},
		{"/metrics", "/metrics"},
		{"/random/unsigned", "/random/unsigned"},
		{"/random/signed", "/random/signed"},
		{"/random/color", "/random/color"},
		{"/random/other", "/unknown"},
		{"/random/unsigned/../../etc", "/unknown"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			assert.Equal(t, tt.expected, EndpointPattern(req))
		})
	}
}

func TestEndpointPatternPrefersRoutePattern(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Get("/random/{kind}", func(w http.ResponseWriter, req *http.Request) {
		seen = EndpointPattern(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/anything", nil))

	assert.Equal(t, "/random/{kind}", seen)
}
