package settings

import "github.com/spf13/viper"

const (
	// DefaultDirPermissions is used for ~/.pam.
	DefaultDirPermissions = 0750
	// DefaultDatabasePath is relative to the working directory.
	DefaultDatabasePath = "pam.db"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("store.connection", "")

	v.SetDefault("migration.concurrency", 1)
	v.SetDefault("migration.units_per_second", 0.0)
	v.SetDefault("migration.progress_mode", "step")
	v.SetDefault("migration.record_runs", true)

	v.SetDefault("log.json", false)

	v.SetDefault("session.last_used_organization_url", "")
}
