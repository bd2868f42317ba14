package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lherron/quotesync/internal/db"
	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/kv"
	"github.com/lherron/quotesync/internal/store"
)

// TempDB creates a migrated temporary SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore opens an empty, unseeded store over an in-memory backend.
// The backend is returned so tests can inspect what was persisted.
func TempStore(t *testing.T, now func() time.Time) (*store.Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	s, err := store.Open(backend, store.Options{Now: now})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return s, backend
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// RemoteRecord builds a synced record with the conventional local id.
func RemoteRecord(localID string, remoteID int64, text, category string, at time.Time) domain.Record {
	return domain.Record{
		LocalID:   localID,
		RemoteID:  Ptr(remoteID),
		Text:      text,
		Category:  category,
		UpdatedAt: at,
		Origin:    domain.OriginRemote,
	}
}

// LocalRecord builds an unsynced record.
func LocalRecord(localID, text, category string, at time.Time) domain.Record {
	return domain.Record{
		LocalID:   localID,
		Text:      text,
		Category:  category,
		UpdatedAt: at,
		Origin:    domain.OriginLocal,
	}
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertEqual asserts that two comparable values are equal
func AssertEqual[T comparable](t *testing.T, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Expected %v, got %v", expected, actual)
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
