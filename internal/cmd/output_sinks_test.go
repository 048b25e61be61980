package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/core"
	"github.com/streamrand/streamrand/internal/output"
)

func reportCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "sources.check", sanitizeFilename("Sources.Check"))
	assert.Equal(t, "keys-user-7", sanitizeFilename(" keys / user 7 "))
	assert.Equal(t, "output", sanitizeFilename("../"))
}

func TestOutputExtension(t *testing.T) {
	assert.Equal(t, "json", outputExtension(output.FormatJSON))
	assert.Equal(t, "md", outputExtension(output.FormatMarkdown))
	assert.Equal(t, "txt", outputExtension(output.FormatTable))
}

func TestWriteReportToOutDir(t *testing.T) {
	dir := t.TempDir()
	cmd := reportCommand(t, map[string]string{"output-format": "json", "out-dir": dir})

	probes := []core.SourceProbe{{Index: 0, URL: "https://streams.example/a.m3u8", Bytes: 188}}
	require.NoError(t, writeReport(cmd, "sources.check", func(f output.Formatter) (string, error) {
		return f.FormatProbes(probes)
	}))

	data, err := os.ReadFile(filepath.Join(dir, "sources.check.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://streams.example/a.m3u8")
}

func TestWriteReportRejectsBothTargets(t *testing.T) {
	cmd := reportCommand(t, map[string]string{"out": "a.txt", "out-dir": t.TempDir()})

	err := writeReport(cmd, "keys.list", func(output.Formatter) (string, error) { return "", nil })
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestResolveReportTargetStdout(t *testing.T) {
	target, err := resolveReportTarget(reportCommand(t, map[string]string{"out": "-"}), "keys.list")
	require.NoError(t, err)
	assert.Empty(t, target.path)
	assert.Equal(t, output.FormatTable, target.format)
}
