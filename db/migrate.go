package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/pam/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migration is one embedded schema change.
type Migration struct {
	// Version is the numeric file prefix, e.g. "001".
	Version string
	File    string
}

// Migrations lists the embedded migrations in apply order.
func Migrations() ([]Migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, _ := strings.Cut(name, "_")
		out = append(out, Migration{Version: version, File: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// Migrate runs all pending migrations.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	_, err := Apply(db, logger)
	return err
}

// Apply runs all pending migrations and returns the ones it applied, in order.
// Each migration commits in its own transaction; a failure leaves the earlier
// ones applied.
func Apply(db *sql.DB, logger *zap.SugaredLogger) ([]Migration, error) {
	all, err := Migrations()
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range all {
		done, err := isApplied(db, m)
		if err != nil {
			return applied, err
		}
		if done {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", m.File)
			}
			continue
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", m.File, "version", m.Version)
		}
		if err := apply(db, m); err != nil {
			return applied, err
		}
		applied = append(applied, m)
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"total_migrations", len(all),
			"applied", len(applied),
		)
	}
	return applied, nil
}

func isApplied(db *sql.DB, m Migration) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.Version).Scan(&exists)
	if err == nil {
		return exists, nil
	}
	// Before 000 has run there is no schema_migrations table to ask
	if m.Version == "000" {
		return false, nil
	}
	return false, errors.Wrapf(err, "schema_migrations unreadable before %s", m.File)
}

func apply(db *sql.DB, m Migration) error {
	sqlBytes, err := migrations.ReadFile(path.Join(migrationsDir, m.File))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.File)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.File)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(sqlBytes)); err != nil {
		return errors.Wrapf(err, "execute %s", m.File)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return errors.Wrapf(err, "record %s", m.File)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.File)
}
