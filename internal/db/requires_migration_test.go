package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/quotesync/internal/db"
)

func TestRequiresMigrationError(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	// Create schema_migrations table and add only first migration
	_, err = database.Exec(`
		CREATE TABLE schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		t.Fatalf("could not create schema_migrations: %v", err)
	}

	_, err = database.Exec(`INSERT INTO schema_migrations (version) VALUES ('000001_kv.sql')`)
	if err != nil {
		t.Fatalf("could not insert migration: %v", err)
	}

	migErr := database.RequiresMigrationError()
	if migErr == nil {
		t.Fatal("expected migration error, got nil")
	}

	errStr := migErr.Error()
	if !strings.Contains(errStr, dbPath) {
		t.Errorf("error should contain db path '%s', got: %s", dbPath, errStr)
	}
	if !strings.Contains(errStr, "000001_kv.sql") {
		t.Errorf("error should contain current version, got: %s", errStr)
	}
	if !strings.Contains(errStr, "quotesync init") {
		t.Errorf("error should mention the init command, got: %s", errStr)
	}
}

func TestRequiresMigrationError_NoPendingMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		t.Fatalf("could not migrate: %v", err)
	}

	if err := database.RequiresMigrationError(); err != nil {
		t.Errorf("expected nil error after migration, got: %v", err)
	}
}

func TestMigrateWithInfo_Idempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	first, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if len(first) != 2 {
		t.Errorf("expected 2 migrations applied, got %v", first)
	}

	second, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected no migrations on second run, got %v", second)
	}
}
