// Package buildinfo provides build-time properties injected via ldflags,
// falling back to the VCS stamp the Go toolchain embeds in the binary.
//
//	go build -ldflags "-X github.com/nomis52/clubboard/buildinfo.version=v1.2.0"
package buildinfo

import "runtime/debug"

// Properties holds build-time properties.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

const unknown = "unknown"

// Package-level variables for ldflags injection (unexported).
var (
	version   = unknown
	buildTime = unknown
	gitCommit = unknown
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns the current build properties.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}

	info, ok := readBuildInfo()
	if !ok {
		return p
	}
	if p.Version == unknown && info.Main.Version != "" && info.Main.Version != "(devel)" {
		p.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if p.GitCommit == unknown {
				p.GitCommit = s.Value
			}
		case "vcs.time":
			if p.BuildTime == unknown {
				p.BuildTime = s.Value
			}
		}
	}
	return p
}
