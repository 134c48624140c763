package settings

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource says where a configuration value came from.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"  // /etc/pam/config.toml
	SourceUser        ConfigSource = "user"    // ~/.pam/config.toml
	SourceSession     ConfigSource = "session" // ~/.pam/session.toml
	SourceProject     ConfigSource = "project" // pam.toml
	SourceEnvironment ConfigSource = "environment"
)

// SourceInfo is a source plus the file path or variable name behind it.
type SourceInfo struct {
	Source ConfigSource `json:"source" yaml:"source"`
	Path   string       `json:"path,omitempty" yaml:"path,omitempty"`
}

// SettingInfo is one effective setting and its origin.
type SettingInfo struct {
	Key   string      `json:"key" yaml:"key"`
	Value interface{} `json:"value" yaml:"value"`

	SourceInfo `yaml:",inline"`
}

// Introspect lists every effective setting, sorted by key, with the source that
// won for it.
func Introspect() []SettingInfo {
	v := initViper()

	keys := v.AllKeys()
	sort.Strings(keys)

	out := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		src := SourceInfo{Source: SourceDefault}
		if s, ok := configSources[key]; ok {
			src = s
		}
		envKey := "PAM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, ok := os.LookupEnv(envKey); ok {
			src = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}
		out = append(out, SettingInfo{Key: key, Value: v.Get(key), SourceInfo: src})
	}
	return out
}
