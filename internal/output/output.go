package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/streamrand/streamrand/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatKeys(keys []core.APIKey) (string, error)
	FormatProbes(probes []core.SourceProbe) (string, error)
	FormatRateLimits(windows []core.RateLimitWindow, now time.Time) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func probeStatus(p core.SourceProbe) string {
	if p.OK() {
		return "ok"
	}
	if p.Error == "" {
		return "short"
	}
	return "failed"
}

func probeNotes(p core.SourceProbe) string {
	if p.Error != "" {
		return p.Error
	}
	return fmt.Sprintf("%d bytes", p.Bytes)
}

func sessionLabel(key core.APIKey) string {
	if key.ExternalSessionID == "" {
		return "-"
	}
	return key.ExternalSessionID
}
