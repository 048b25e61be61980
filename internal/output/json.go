package output

import (
	"encoding/json"
	"time"

	"github.com/streamrand/streamrand/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// FormatKeys renders issued keys as a JSON array.
func (f *JSONFormatter) FormatKeys(keys []core.APIKey) (string, error) {
	if keys == nil {
		keys = []core.APIKey{}
	}
	return f.marshal(keys)
}

// FormatProbes renders probes as a JSON array.
func (f *JSONFormatter) FormatProbes(probes []core.SourceProbe) (string, error) {
	if probes == nil {
		probes = []core.SourceProbe{}
	}
	return f.marshal(probes)
}

// FormatRateLimits renders open windows as a JSON array.
func (f *JSONFormatter) FormatRateLimits(windows []core.RateLimitWindow, _ time.Time) (string, error) {
	if windows == nil {
		windows = []core.RateLimitWindow{}
	}
	return f.marshal(windows)
}
