package metrics

import "time"

// Service lifecycle metric names
const (
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
	ServerUptime        = "app_server_uptime_seconds"
)

// RecordHealthCheck records one health check run and its latency.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	counter(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	histogram(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(started time.Time) {
	gauge(ServerStartTime, float64(started.Unix()), nil)
}

// SetServerUptime records the server uptime in seconds.
func SetServerUptime(uptime time.Duration) {
	gauge(ServerUptime, uptime.Seconds(), nil)
}
