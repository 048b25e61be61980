package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/metrics"
	"github.com/streamrand/streamrand/internal/observability"
)

// fixedEndpoints are reported under their own path when chi has no route pattern.
var fixedEndpoints = map[string]string{
	"/health":          "/health/*",
	"/health/live":     "/health/*",
	"/health/ready":    "/health/*",
	"/health/startup":  "/health/*",
	"/random/unsigned": "/random/unsigned",
	"/random/signed":   "/random/signed",
	"/random/boolean":  "/random/boolean",
	"/random/color":    "/random/color",
	"/version":         "/version",
	"/metrics":         "/metrics",
	"/":                "/",
}

// EndpointPattern keeps metric labels low-cardinality: the chi route
// pattern when routed, a known path otherwise, and "/unknown" for the rest.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if pattern, ok := fixedEndpoints[r.URL.Path]; ok {
		return pattern
	}
	return "/unknown"
}

// RequestMetrics records every request and logs it with its request id.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil && observability.ServerLogger == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}
		completed := metrics.HTTPRequest{
			Method:       r.Method,
			Endpoint:     EndpointPattern(r),
			Status:       status,
			Duration:     time.Since(start),
			RequestSize:  requestSize,
			ResponseSize: int64(ww.BytesWritten()),
		}
		metrics.RecordHTTPRequest(completed)

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", completed.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", completed.Endpoint),
				zap.Int("status", completed.Status),
				zap.Duration("duration", completed.Duration),
				zap.Int64("response_size", completed.ResponseSize),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
