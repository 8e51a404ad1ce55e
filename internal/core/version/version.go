// Package version reports the build identity of the ingester and the read API
package version

import "runtime/debug"

// BuildInfo holds version information about a binary
type BuildInfo struct {
	Service string `json:"service" example:"ted-api"`
	Version string `json:"version" example:"v0.3.0"`
	Commit  string `json:"commit"  example:"4f2a9c1"`
	Date    string `json:"date"    example:"2025-10-10"`
	Go      string `json:"go"      example:"go1.25.1"`
}

// set with -ldflags "-X 'tedingest/internal/core/version.version=v0.3.0'
// -X 'tedingest/internal/core/version.commit=4f2a9c1' -X 'tedingest/internal/core/version.date=2025-10-10'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information for the default service name
func Info() BuildInfo { return For("tedingest") }

// For returns the build information labelled with service. Unset ldflags fall
// back to the vcs stamps the go toolchain embeds.
func For(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	bi.Go = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if bi.Commit == "none" && len(s.Value) >= 7 {
				bi.Commit = s.Value[:7]
			}
		case "vcs.time":
			if bi.Date == "unknown" {
				bi.Date = s.Value
			}
		}
	}
	return bi
}

// UserAgent is the product token sent to upstream servers
func UserAgent() string { return "tedingest/" + version }
