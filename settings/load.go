package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/pam/errors"
)

// ProjectConfigName is searched for from the working directory upward.
const ProjectConfigName = "pam.toml"

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	configSources map[string]SourceInfo
)

// Load reads the pam configuration. The result is cached until Reset.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance behind Load.
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a single file on top of the defaults.
// The environment is not consulted.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return LoadWithViper(v)
}

// Reset clears the cached configuration.
func Reset() {
	globalConfig = nil
	viperInstance = nil
	configSources = nil
}

// Dir returns ~/.pam.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".pam"), nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// PAM_DATABASE_PATH, PAM_MIGRATION_CONCURRENCY, ...
	v.SetEnvPrefix("PAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// ConfigPaths lists the files Load merges, lowest precedence first. Files that do
// not exist are skipped at load time.
func ConfigPaths() []string {
	files := configFiles()
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

func configFiles() []SourceInfo {
	files := []SourceInfo{{Source: SourceSystem, Path: "/etc/pam/config.toml"}}
	if dir, err := Dir(); err == nil {
		files = append(files,
			SourceInfo{Source: SourceUser, Path: filepath.Join(dir, "config.toml")},
			SourceInfo{Source: SourceSession, Path: filepath.Join(dir, SessionFileName)},
		)
	}
	if project := findProjectConfig(); project != "" {
		files = append(files, SourceInfo{Source: SourceProject, Path: project})
	}
	return files
}

func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges config files into v's config layer, so environment
// variables still win over every file. The file that last set each key is
// recorded in configSources.
func mergeConfigFiles(v *viper.Viper) {
	configSources = make(map[string]SourceInfo)
	for _, file := range configFiles() {
		if _, err := os.Stat(file.Path); err != nil {
			continue
		}
		fileViper := viper.New()
		fileViper.SetConfigFile(file.Path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range fileViper.AllKeys() {
			configSources[key] = file
		}
	}
}
