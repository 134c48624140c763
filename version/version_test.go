package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_FillFromSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "4f1c2a9e0b7d"},
		{Key: "vcs.time", Value: "2026-10-01T09:30:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	t.Run("ldflags unset", func(t *testing.T) {
		info := Info{CommitHash: "dev", BuildTime: "unknown", Version: "dev"}
		info.fillFromSettings(settings)
		assert.Equal(t, "4f1c2a9e0b7d", info.CommitHash)
		assert.Equal(t, "2026-10-01T09:30:00Z", info.BuildTime)
		assert.True(t, info.Modified)
		assert.Equal(t, "pam dev (commit 4f1c2a9+dirty, built 2026-10-01T09:30:00Z)", info.String())
	})

	t.Run("ldflags win", func(t *testing.T) {
		info := Info{CommitHash: "abcdef0123", BuildTime: "2026-09-30", Version: "v0.3.0"}
		info.fillFromSettings(settings)
		assert.Equal(t, "abcdef0123", info.CommitHash)
		assert.Equal(t, "2026-09-30", info.BuildTime)
		assert.Equal(t, "pam v0.3.0 (commit abcdef0+dirty, built 2026-09-30)", info.String())
	})
}

func TestInfo_Short(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
	assert.Equal(t, "1234567", Info{CommitHash: "123456789"}.Short())
}
