package metrics

import "strconv"

// Entropy and access metric names
const (
	SourceFetchesTotal  = "entropy_source_fetches_total"
	SourceRotationTotal = "entropy_source_rotations_total"
	SourceIndex         = "entropy_source_index"
	CatalogSources      = "entropy_catalog_sources"
	AccessDecisions     = "access_decisions_total"
)

// SourceObserver reports rotation bookkeeping as telemetry.
type SourceObserver struct{}

// FetchCompleted records one source fetch.
func (SourceObserver) FetchCompleted(source int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	counter(SourceFetchesTotal, map[string]string{
		"source": strconv.Itoa(source),
		"status": status,
	})
}

// Rotated records a move to another source.
func (SourceObserver) Rotated(from, to int) {
	counter(SourceRotationTotal, map[string]string{
		"from": strconv.Itoa(from),
		"to":   strconv.Itoa(to),
	})
	gauge(SourceIndex, float64(to), nil)
}

// SetCatalogSources records how many sources were loaded at startup.
func SetCatalogSources(count int) {
	gauge(CatalogSources, float64(count), nil)
}

// RecordAccessDecision records the outcome of an access check, e.g.
// tier=anonymous outcome=rate_limited.
func RecordAccessDecision(tier string, outcome string) {
	counter(AccessDecisions, map[string]string{
		"tier":    tier,
		"outcome": outcome,
	})
}
