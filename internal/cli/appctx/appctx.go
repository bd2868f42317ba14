// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, database opening, and store construction
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/config"
	"github.com/lherron/quotesync/internal/db"
	"github.com/lherron/quotesync/internal/events"
	"github.com/lherron/quotesync/internal/kv"
	"github.com/lherron/quotesync/internal/logging"
	"github.com/lherron/quotesync/internal/remote"
	"github.com/lherron/quotesync/internal/store"
	qsync "github.com/lherron/quotesync/internal/sync"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Logs hands out component loggers
	Logs *logging.Logs

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store holds records, conflicts and meta over DB
	Store *store.Store

	// Remote talks to the authoritative collection
	Remote remote.Gateway

	// History records finished sync cycles
	History *events.Writer

	// Observer, when set, receives every cycle from engines built by Engine.
	Observer qsync.Observer

	// Now is the clock handed to the sync components. Nil means time.Now.
	Now func() time.Time
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
	if a.Logs != nil {
		a.Logs.Close()
		a.Logs = nil
	}
}

// Engine builds a sync engine over the app's store and gateway.
func (a *App) Engine(n qsync.Notifier) *qsync.Engine {
	opts := qsync.Options{
		PullLimit: a.Config.PullLimit,
		Notifier:  n,
		Observer:  a.Observer,
		Logger:    a.logs().For("sync"),
		Now:       a.Now,
	}
	if a.History != nil {
		opts.History = a.History
	}
	return qsync.NewEngine(a.Store, a.Remote, opts)
}

// Resolver builds a conflict resolver over the app's store.
func (a *App) Resolver(n qsync.Notifier) *qsync.Resolver {
	return qsync.NewResolver(a.Store, n, a.logs().For("resolve"), a.Now)
}

func (a *App) logs() *logging.Logs {
	if a.Logs == nil {
		return logging.Discard()
	}
	return a.Logs
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database and the store over it.
	NeedsDB bool

	// NeedsRemote indicates whether to build the remote client.
	NeedsRemote bool
}

// DefaultOptions returns default options (DB required, no remote).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// WithRemote returns options that require both DB and remote.
func WithRemote() Options {
	return Options{NeedsDB: true, NeedsRemote: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// LoadConfig loads configuration and applies the --db and --remote flags.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dbFlag := cmd.Flag("db"); dbFlag != nil {
		if dbPath := dbFlag.Value.String(); dbPath != "" {
			cfg.DBPath = dbPath
		}
	}
	if remoteFlag := cmd.Flag("remote"); remoteFlag != nil {
		if remoteURL := remoteFlag.Value.String(); remoteURL != "" {
			cfg.RemoteURL = remoteURL
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return Build(cfg, opts)
}

// Build constructs the App from an already loaded config.
func Build(cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	logs, err := logging.Open(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	app.Logs = logs

	if opts.NeedsDB {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.DB = database

		if err := database.RequiresMigrationError(); err != nil {
			app.Close()
			return nil, err
		}

		st, err := store.Open(kv.NewSQLite(database), store.Options{
			SeedDefaults: cfg.SeedDefaults,
			Logger:       logs.For("store"),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		app.Store = st
		app.History = events.NewWriter(database.DB)
	}

	if opts.NeedsRemote {
		client, err := remote.NewClient(remote.Config{
			BaseURL:    cfg.RemoteURL,
			Collection: cfg.Collection,
			UserID:     cfg.UserID,
			Timeout:    cfg.Timeout(),
		}, logs.For("remote"))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to build remote client: %w", err)
		}
		app.Remote = client
	}

	return app, nil
}
