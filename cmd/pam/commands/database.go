package commands

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/teranos/pam/db"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/settings"
)

// openDatabase opens and migrates the database at dbPath, creating its directory
// when needed.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = settings.DefaultDatabasePath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, settings.DefaultDirPermissions); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
		}
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}
	return database, nil
}
