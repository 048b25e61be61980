package core

import "time"

// SourceProbe is the outcome of fetching one segment from a source.
type SourceProbe struct {
	Index    int           `json:"index"`
	URL      string        `json:"source"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// OK reports whether the probe returned usable bytes.
func (p SourceProbe) OK() bool {
	return p.Error == "" && p.Bytes >= 4
}
