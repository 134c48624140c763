// Package version reports how the pam binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/teranos/pam/version.Version=v0.3.0 -X github.com/teranos/pam/version.CommitHash=$(git rev-parse HEAD)"
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info is the build description printed by 'pam version'.
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	// Modified is true when the build came from a dirty checkout.
	Modified bool `json:"modified,omitempty"`
}

// Get returns the build information. Values not set through ldflags are taken
// from the VCS stamp Go embeds in the binary, when there is one.
func Get() Info {
	info := Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fillFromSettings(bi.Settings)
	}
	return info
}

func (i *Info) fillFromSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.CommitHash == "dev" {
				i.CommitHash = s.Value
			}
		case "vcs.time":
			if i.BuildTime == "unknown" {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

func (i Info) String() string {
	dirty := ""
	if i.Modified {
		dirty = "+dirty"
	}
	return fmt.Sprintf("pam %s (commit %s%s, built %s)", i.Version, i.Short(), dirty, i.BuildTime)
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
