// Package version carries build metadata injected at link time:
// -X 'github.com/compozy/groupops/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/groupops/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/groupops/pkg/version.BuildDate=2024-01-01T00:00:00Z'
package version

import (
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

var (
	Version    = unknown
	CommitHash = unknown
	BuildDate  = unknown
)

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns the current build information, falling back to the module
// and VCS data embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.CommitHash == unknown:
			info.CommitHash = setting.Value
		case setting.Key == "vcs.time" && info.BuildDate == unknown:
			info.BuildDate = setting.Value
		}
	}
	return info
}
