// Package version reports build metadata stamped at link time
package version

import "runtime/debug"

// BuildInfo describes the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Stamped via -ldflags "-X 'murmur/internal/core/version.version=v0.3.0' -X 'murmur/internal/core/version.commit=abcd'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// Info returns the build information, falling back to VCS data embedded by the toolchain
func Info() BuildInfo {
	bi := BuildInfo{Service: "murmur", Version: version, Commit: commit, Date: date}
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return bi
	}
	bi.Go = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if bi.Commit == "none" {
				bi.Commit = s.Value
			}
		case "vcs.time":
			if bi.Date == "unknown" {
				bi.Date = s.Value
			}
		}
	}
	return bi
}
