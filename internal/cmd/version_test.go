package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteVersionPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, versionReport{Name: "streamrand", Version: "1.2.0"}, false))
	assert.Equal(t, "streamrand 1.2.0\n", buf.String())
}

func TestWriteVersionExtended(t *testing.T) {
	var buf bytes.Buffer
	report := versionReport{
		Name:      "streamrand",
		Version:   "1.2.0",
		Commit:    "abc123",
		BuildDate: "2026-01-02",
		Go:        "go1.25.1",
		Gofulmen:  "0.3.0",
		Crucible:  "0.4.2",
	}
	require.NoError(t, writeVersion(&buf, report, false))

	out := buf.String()
	assert.Contains(t, out, "streamrand 1.2.0\n")
	assert.Contains(t, out, "Commit: abc123\n")
	assert.Contains(t, out, "Crucible: 0.4.2\n")
}

func TestWriteVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, versionReport{Name: "streamrand", Version: "dev"}, true))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, map[string]string{"name": "streamrand", "version": "dev"}, decoded)
}
