package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "bare",
			info: Info{Version: "dev", GoVersion: "go1.24.4"},
			want: "assembly-coach dev go1.24.4",
		},
		{
			name: "full",
			info: Info{Version: "v0.3.0", Commit: "0123456789abcdef", BuildDate: "2026-03-01", GoVersion: "go1.24.4"},
			want: "assembly-coach v0.3.0 (0123456789ab) built 2026-03-01 go1.24.4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestGetPrefersLinkedCommit(t *testing.T) {
	oldCommit := Commit
	t.Cleanup(func() { Commit = oldCommit })
	Commit = "abc123"

	info := Get()
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, Version, info.Version)
}
