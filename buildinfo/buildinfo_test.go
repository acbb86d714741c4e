package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo, ok bool) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, ok }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withLdflags(t *testing.T, v, bt, gc string) {
	t.Helper()
	ov, obt, ogc := version, buildTime, gitCommit
	version, buildTime, gitCommit = v, bt, gc
	t.Cleanup(func() { version, buildTime, gitCommit = ov, obt, ogc })
}

func TestGet(t *testing.T) {
	stamped := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-02-01T10:00:00Z"},
		},
	}

	tests := []struct {
		name    string
		ldflags [3]string
		info    *debug.BuildInfo
		ok      bool
		want    Properties
	}{
		{
			name:    "nothing known",
			ldflags: [3]string{unknown, unknown, unknown},
			want:    Properties{Version: unknown, BuildTime: unknown, GitCommit: unknown},
		},
		{
			name:    "vcs stamp fills the gaps",
			ldflags: [3]string{unknown, unknown, unknown},
			info:    stamped,
			ok:      true,
			want:    Properties{Version: "v0.3.1", BuildTime: "2026-02-01T10:00:00Z", GitCommit: "abc123"},
		},
		{
			name:    "ldflags win",
			ldflags: [3]string{"v1.0.0", "yesterday", "def456"},
			info:    stamped,
			ok:      true,
			want:    Properties{Version: "v1.0.0", BuildTime: "yesterday", GitCommit: "def456"},
		},
		{
			name:    "devel version is ignored",
			ldflags: [3]string{unknown, unknown, unknown},
			info:    &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			ok:      true,
			want:    Properties{Version: unknown, BuildTime: unknown, GitCommit: unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLdflags(t, tt.ldflags[0], tt.ldflags[1], tt.ldflags[2])
			withBuildInfo(t, tt.info, tt.ok)
			assert.Equal(t, tt.want, Get())
		})
	}
}
