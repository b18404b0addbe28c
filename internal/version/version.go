// Package version holds build information for aiaudit.
package version

import "runtime"

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X aiaudit/internal/version.Version=1.0.0 -X aiaudit/internal/version.Commit=abc123"
var (
	// Version is the semantic version of aiaudit
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Full returns complete version information
func Full() string {
	return "aiaudit version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}

// UserAgent identifies aiaudit to remote APIs.
func UserAgent() string {
	return "aiaudit/" + Version
}

// BuildInfo is the machine-readable form of Full.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

// Get returns the current build information.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}
