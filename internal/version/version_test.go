package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		expected string
	}{
		{"release", Info{Version: "v1.2.0", GitCommit: "abcdef123456"}, "v1.2.0 (abcdef1)"},
		{"dev", Info{Version: "dev", GitCommit: "abcdef123456"}, "dev-abcdef1"},
		{"no commit", Info{Version: "v1.2.0", GitCommit: "unknown"}, "v1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.Short())
		})
	}
}

func TestString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc",
		Dirty:     true,
		BuildTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24",
		Platform:  "linux/amd64",
	}
	out := info.String()
	assert.Contains(t, out, "Version: v1.0.0")
	assert.Contains(t, out, "Commit: abc (dirty)")
	assert.Contains(t, out, "Built: 2024-01-02T03:04:05Z")
	assert.Contains(t, out, "Platform: linux/amd64")
	assert.True(t, info.IsRelease())
	assert.False(t, Info{Version: "dev-abc"}.IsRelease())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("garbage").IsZero())
	assert.Equal(t, 2024, parseTime("2024-05-01T10:00:00Z").Year())
	assert.Equal(t, 2024, parseTime("2024-05-01 10:00:00").Year())
}
