// Package config carries the build stamp shared by projtrack-server and
// projctl. The variables are set with -ldflags "-X".
package config

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is served by GET /api/version and printed by "projctl version -o json".
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo snapshots the stamp of the running binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// VersionString renders the stamp for program on one line.
func VersionString(program string) string {
	b := GetBuildInfo()
	return fmt.Sprintf("%s %s (commit %s, built %s, %s, %s)",
		program, b.Version, b.Commit, b.BuildTime, b.GoVersion, b.Platform)
}

// UserAgent is the User-Agent header projctl sends.
func UserAgent(program string) string {
	return program + "/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
