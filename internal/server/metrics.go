package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/config"
	apperrors "github.com/streamrand/streamrand/internal/errors"
	"github.com/streamrand/streamrand/internal/observability"
)

const defaultExporterPort = 9090

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

// hop-by-hop headers are not forwarded
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

var errExporterNotStarted = errors.New("prometheus exporter not started")

// MetricsHandler serves the loopback Prometheus exporter's output on the
// main listener.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if observability.PrometheusExporter == nil {
		HandleError(w, r, apperrors.WrapServiceUnavailable(ctx, errExporterNotStarted, "Metrics exporter not initialized"))
		return
	}

	target := "http://127.0.0.1:" + strconv.Itoa(exporterPort()) + "/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		HandleError(w, r, apperrors.WrapInternal(ctx, err, "Unable to construct metrics request"))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, apperrors.WrapExternalService(ctx, err, "Prometheus exporter unavailable"))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, hop := hopHeaders[http.CanonicalHeaderKey(key)]; hop {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// exporterPort prefers the port the exporter actually bound, then config.
func exporterPort() int {
	if port := observability.GetMetricsPort(); port != 0 {
		return port
	}
	if cfg := config.GetConfig(); cfg != nil && cfg.Metrics.Port != 0 {
		return cfg.Metrics.Port
	}
	return defaultExporterPort
}
