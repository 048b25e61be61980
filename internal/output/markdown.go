package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/streamrand/streamrand/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatKeys renders issued keys as a markdown table.
func (f *MarkdownFormatter) FormatKeys(keys []core.APIKey) (string, error) {
	var sb strings.Builder
	sb.WriteString("## API keys\n\n")
	sb.WriteString("| ID | User | Paid | Session | Created |\n")
	sb.WriteString("|----|------|------|---------|---------|\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %s | %s |\n",
			escapeMarkdownCell(k.ID),
			k.UserID,
			k.PaidAmount,
			escapeMarkdownCell(sessionLabel(k)),
			k.CreatedAt.UTC().Format(time.RFC3339),
		))
	}
	return sb.String(), nil
}

// FormatProbes renders probes as a markdown table.
func (f *MarkdownFormatter) FormatProbes(probes []core.SourceProbe) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Source check\n\n")
	sb.WriteString("| # | Source | Status | Notes |\n")
	sb.WriteString("|---|--------|--------|-------|\n")
	for _, p := range probes {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			p.Index,
			escapeMarkdownCell(p.URL),
			probeStatus(p),
			escapeMarkdownCell(probeNotes(p)),
		))
	}
	return sb.String(), nil
}

// FormatRateLimits renders open windows as a markdown table.
func (f *MarkdownFormatter) FormatRateLimits(windows []core.RateLimitWindow, now time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Rate limits\n\n")
	sb.WriteString("| Client | Expires | Remaining |\n")
	sb.WriteString("|--------|---------|-----------|\n")
	for _, w := range windows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(w.Client),
			w.ExpiresAt.UTC().Format(time.RFC3339),
			w.Remaining(now).Round(time.Second),
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
