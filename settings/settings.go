// Package settings loads pam's configuration from TOML files and the environment.
package settings

// Config is the full pam configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" yaml:"database"`
	Store     StoreConfig     `mapstructure:"store" toml:"store" yaml:"store"`
	Migration MigrationConfig `mapstructure:"migration" toml:"migration" yaml:"migration"`
	Log       LogConfig       `mapstructure:"log" toml:"log" yaml:"log"`
	Session   SessionConfig   `mapstructure:"session" toml:"session" yaml:"session"`
}

// DatabaseConfig configures the local SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path"`
}

// StoreConfig names the record-store connection.
type StoreConfig struct {
	// Connection is the organisation URL, shown to the operator.
	Connection string `mapstructure:"connection" toml:"connection" yaml:"connection"`
}

// MigrationConfig tunes the batch engine.
type MigrationConfig struct {
	// Concurrency is the number of units in flight; 1 keeps plan order.
	Concurrency int `mapstructure:"concurrency" toml:"concurrency" yaml:"concurrency"`
	// UnitsPerSecond throttles dispatch; 0 = unthrottled.
	UnitsPerSecond float64 `mapstructure:"units_per_second" toml:"units_per_second" yaml:"units_per_second"`
	// ProgressMode is "step" or "exact".
	ProgressMode string `mapstructure:"progress_mode" toml:"progress_mode" yaml:"progress_mode"`
	RecordRuns   bool   `mapstructure:"record_runs" toml:"record_runs" yaml:"record_runs"`
}

// LogConfig configures the logger.
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" yaml:"json"`
}

// SessionConfig holds values pam remembers between invocations.
type SessionConfig struct {
	LastUsedOrganizationURL string `mapstructure:"last_used_organization_url" toml:"last_used_organization_url" yaml:"last_used_organization_url"`
}

// Organization returns the connection label to show the operator: the configured
// store connection, else the last organisation used.
func (c *Config) Organization() string {
	if c.Store.Connection != "" {
		return c.Store.Connection
	}
	return c.Session.LastUsedOrganizationURL
}
