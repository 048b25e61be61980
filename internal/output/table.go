package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/streamrand/streamrand/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// FormatKeys renders issued keys. Digests are never shown.
func (f *TableFormatter) FormatKeys(keys []core.APIKey) (string, error) {
	t := newTable(table.Row{"ID", "User", "Paid", "Session", "Created"})
	for _, k := range keys {
		t.AppendRow(table.Row{
			k.ID,
			k.UserID,
			fmt.Sprintf("%.2f", k.PaidAmount),
			sessionLabel(k),
			k.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d key(s)", len(keys))})
	return t.Render(), nil
}

// FormatProbes renders one row per probed source.
func (f *TableFormatter) FormatProbes(probes []core.SourceProbe) (string, error) {
	t := newTable(table.Row{"#", "Source", "Status", "Time", "Notes"})
	healthy := 0
	for _, p := range probes {
		if p.OK() {
			healthy++
		}
		t.AppendRow(table.Row{
			p.Index,
			p.URL,
			probeStatus(p),
			p.Duration.Round(time.Millisecond).String(),
			probeNotes(p),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d ok", healthy, len(probes)), "", ""})
	return t.Render(), nil
}

// FormatRateLimits renders open limiter windows.
func (f *TableFormatter) FormatRateLimits(windows []core.RateLimitWindow, now time.Time) (string, error) {
	t := newTable(table.Row{"Client", "Expires", "Remaining"})
	for _, w := range windows {
		t.AppendRow(table.Row{
			w.Client,
			w.ExpiresAt.UTC().Format(time.RFC3339),
			w.Remaining(now).Round(time.Second).String(),
		})
	}
	if len(windows) == 0 {
		t.AppendRow(table.Row{"(no stored rate limit state)", "", ""})
	}
	return t.Render(), nil
}
