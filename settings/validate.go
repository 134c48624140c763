package settings

import "github.com/teranos/pam/errors"

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.WithHint(errors.New("database.path cannot be empty"), "omit the key to use pam.db")
	}

	// Concurrency: 0 would dispatch nothing, so it is rejected rather than defaulted
	if c.Migration.Concurrency < 1 {
		return errors.Newf("migration.concurrency must be >= 1, got %d", c.Migration.Concurrency)
	}
	if c.Migration.UnitsPerSecond < 0 {
		return errors.Newf("migration.units_per_second must be >= 0, got %f", c.Migration.UnitsPerSecond)
	}

	switch c.Migration.ProgressMode {
	case "", "step", "exact":
	default:
		return errors.Newf("migration.progress_mode must be step or exact, got %q", c.Migration.ProgressMode)
	}

	return nil
}
