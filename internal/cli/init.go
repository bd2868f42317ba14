package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/db"
	"github.com/lherron/quotesync/internal/kv"
	"github.com/lherron/quotesync/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the quotesync database",
	Long: `Initialize creates the SQLite database, runs migrations, and seeds the
default quotes when the collection has never been stored.`,
	RunE: runInit,
}

var initNoSeed bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initNoSeed, "no-seed", false, "Start with an empty collection")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := appctx.LoadConfig(cmd)
	if err != nil {
		return exitError(1, err)
	}

	dbExists := false
	if _, err := os.Stat(cfg.DBPath); err == nil {
		dbExists = true
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	st, err := store.Open(kv.NewSQLite(database), store.Options{
		SeedDefaults: cfg.SeedDefaults && !initNoSeed,
	})
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open store: %w", err))
	}

	out := cmd.OutOrStdout()
	if !dbExists {
		fmt.Fprintf(out, "✓ Initialized new database at %s\n", cfg.DBPath)
	} else {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", cfg.DBPath)
	}
	if len(applied) > 0 {
		fmt.Fprintf(out, "✓ Applied %s\n", plural(len(applied), "migration", "migrations"))
	}
	fmt.Fprintf(out, "✓ %s stored\n", plural(st.Records.Len(), "quote", "quotes"))
	return nil
}
