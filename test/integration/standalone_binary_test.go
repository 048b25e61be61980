package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/streamrand and copies it into a directory
// outside the repository so it cannot pick up repo-relative files.
func buildBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	built := filepath.Join(t.TempDir(), "streamrand")
	build := exec.Command("go", "build", "-o", built, "./cmd/streamrand")
	build.Dir = repoRoot
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)

	data, err := os.ReadFile(built)
	require.NoError(t, err)
	standalone := filepath.Join(t.TempDir(), "streamrand")
	require.NoError(t, os.WriteFile(standalone, data, 0o755))
	return standalone
}

func runBinary(t *testing.T, binary string, args ...string) string {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = filepath.Dir(binary)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	require.NoError(t, err, "%s failed:\n%s", strings.Join(args, " "), stderr.String())
	return string(out)
}

func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	binary := buildBinary(t)

	assert.Contains(t, runBinary(t, binary, "version"), "streamrand")

	var report struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(runBinary(t, binary, "version", "--json")), &report))
	assert.Equal(t, "streamrand", report.Name)
	assert.NotEmpty(t, report.Version)

	help := runBinary(t, binary, "--help")
	for _, sub := range []string{"serve", "keys", "sources", "rate-limit"} {
		assert.Contains(t, help, sub)
	}
}
