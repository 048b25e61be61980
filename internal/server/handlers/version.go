package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

var build = struct {
	sync.RWMutex
	version, commit, date string
	identity              *appidentity.Identity
}{version: "dev", commit: "unknown", date: "unknown"}

// SetVersionInfo records the ldflags build metadata reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	build.Lock()
	defer build.Unlock()
	build.version, build.commit, build.date = version, commit, buildDate
}

// SetAppIdentity records the identity reported by /version.
func SetAppIdentity(identity *appidentity.Identity) {
	build.Lock()
	defer build.Unlock()
	build.identity = identity
}

// Version returns the build version set by SetVersionInfo.
func Version() string {
	build.RLock()
	defer build.RUnlock()
	return build.version
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

type AppInfo struct {
	Name        string `json:"name"`
	Vendor      string `json:"vendor,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Commit      string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler reports build, dependency and runtime versions.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(currentVersion())
}

func currentVersion() VersionResponse {
	build.RLock()
	app := AppInfo{
		Name:      executableName(),
		Version:   build.version,
		Commit:    build.commit,
		BuildDate: build.date,
		GoVersion: runtime.Version(),
	}
	if id := build.identity; id != nil {
		if id.BinaryName != "" {
			app.Name = id.BinaryName
		}
		app.Vendor = id.Vendor
		app.Description = id.Description
	}
	build.RUnlock()

	ssot := crucible.GetVersion()
	return VersionResponse{
		App:          app,
		Dependencies: DepInfo{Gofulmen: ssot.Gofulmen, Crucible: ssot.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
}

func executableName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}
