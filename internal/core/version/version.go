// Package version reports build metadata stamped in with -ldflags
package version

// BuildInfo describes the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// stamped with -ldflags "-X nocscan/internal/core/version.version=v0.1.0 ..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the stamped build metadata
func Info() BuildInfo {
	return BuildInfo{Service: "nocscan", Version: version, Commit: commit, Date: date}
}
