package metrics

import (
	"strconv"
	"time"

	"github.com/streamrand/streamrand/internal/observability"
)

// Error metric names
const (
	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"
)

// RecordError counts an error response by code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	counter(ErrorsTotal, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic(endpoint string) {
	counter(PanicsTotal, map[string]string{"endpoint": endpoint})
}

// RecordErrorByEndpoint counts an error response against the endpoint that produced it.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	counter(ErrorsByEndpoint, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}

// The emit helpers drop values silently when telemetry is disabled.

func counter(name string, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, labels)
	}
}

func gauge(name string, value float64, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, labels)
	}
}

func histogram(name string, d time.Duration, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, labels)
	}
}
