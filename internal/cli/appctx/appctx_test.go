package appctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/db"
)

// isolate clears QUOTESYNC_* variables and runs the test from an empty
// directory so no .env.local or config file leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "QUOTESYNC_") {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, value) })
		}
	}
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldDir) })
	return tmpDir
}

func migratedDB(t *testing.T, path string) {
	t.Helper()
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "Database path")
	cmd.Flags().String("remote", "", "Remote base URL")
	return cmd
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("QUOTESYNC_DB_PATH", filepath.Join(tmpDir, "test.db"))

	app, err := Bootstrap(newCmd(), Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil {
		t.Error("Config should not be nil")
	}
	if app.DB != nil || app.Store != nil {
		t.Error("DB and Store should be nil when NeedsDB is false")
	}
	if app.Remote != nil {
		t.Error("Remote should be nil when NeedsRemote is false")
	}
}

func TestBootstrap_WithDB(t *testing.T) {
	tmpDir := isolate(t)
	dbPath := filepath.Join(tmpDir, "test.db")
	migratedDB(t, dbPath)
	t.Setenv("QUOTESYNC_DB_PATH", dbPath)

	app, err := Bootstrap(newCmd(), WithRemote())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB == nil || app.Store == nil || app.History == nil {
		t.Fatal("DB, Store and History should be set")
	}
	if app.Remote == nil {
		t.Fatal("Remote should be set")
	}
	if got := app.Store.Records.Len(); got != 3 {
		t.Errorf("seeded records = %d, want 3", got)
	}
	if app.Engine(nil) == nil || app.Resolver(nil) == nil {
		t.Error("Engine and Resolver should build")
	}
}

func TestBootstrap_FlagOverrides(t *testing.T) {
	tmpDir := isolate(t)
	dbPath := filepath.Join(tmpDir, "test.db")
	overridePath := filepath.Join(tmpDir, "override.db")
	migratedDB(t, overridePath)
	t.Setenv("QUOTESYNC_DB_PATH", dbPath)

	cmd := newCmd()
	if err := cmd.ParseFlags([]string{"--db", overridePath, "--remote", "http://127.0.0.1:9/api"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	app, err := Bootstrap(cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.DBPath != overridePath {
		t.Errorf("DBPath = %q, want %q", app.Config.DBPath, overridePath)
	}
	if app.Config.RemoteURL != "http://127.0.0.1:9/api" {
		t.Errorf("RemoteURL = %q", app.Config.RemoteURL)
	}
}

func TestBootstrap_RequiresMigration(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("QUOTESYNC_DB_PATH", filepath.Join(tmpDir, "fresh.db"))

	_, err := Bootstrap(newCmd(), DefaultOptions())
	if err == nil {
		t.Fatal("expected migration error for an uninitialized database")
	}
	if !strings.Contains(err.Error(), "quotesync init") {
		t.Errorf("error should point at init, got %v", err)
	}
}

func TestBootstrap_InvalidRemote(t *testing.T) {
	isolate(t)
	t.Setenv("QUOTESYNC_REMOTE_URL", "ftp://example.com")

	if _, err := Bootstrap(newCmd(), Options{}); err == nil {
		t.Fatal("expected invalid config error")
	}
}
