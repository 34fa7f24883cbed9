package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is printed by `ghboard version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionString returns the one-line banner for `ghboard version`.
func GetVersionString() string {
	info := GetBuildInfo()
	if info.Version == "dev" {
		return fmt.Sprintf("ghboard %s (%s) built with %s on %s",
			info.Version, info.Commit, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("ghboard %s (%s) built on %s with %s for %s",
		info.Version, info.Commit, info.Date, info.GoVersion, info.Platform)
}

func GetShortVersion() string {
	return Version
}

// UserAgent identifies ghboard to the GitHub API.
func UserAgent() string {
	return "ghboard/" + Version
}
