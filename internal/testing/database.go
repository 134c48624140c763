package testing

import (
	"database/sql"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/teranos/pam/db"
)

// CreateTestDB creates an in-memory SQLite database with every migration applied.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenWithMigrations(db.MemoryPath, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}
