package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/output"
)

func TestWriteRateLimitResetResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRateLimitResetResult(&buf, output.FormatTable, rateLimitResetResult{Matched: 3, Deleted: 3}))
	assert.Equal(t, "Cleared 3/3 limiter window(s)\n", buf.String())

	buf.Reset()
	require.NoError(t, writeRateLimitResetResult(&buf, output.FormatMarkdown, rateLimitResetResult{Matched: 2, DryRun: true}))
	assert.Equal(t, "Would clear 2 limiter window(s)\n", buf.String())

	buf.Reset()
	require.NoError(t, writeRateLimitResetResult(&buf, output.FormatJSON, rateLimitResetResult{Matched: 1, Deleted: 1}))
	var decoded rateLimitResetResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rateLimitResetResult{Matched: 1, Deleted: 1}, decoded)
}
