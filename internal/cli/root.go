package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quotesync",
	Short: "Local-first quote collection that syncs with a remote API",
	Long: `quotesync keeps a quote collection in a local SQLite database and
reconciles it with a remote JSON collection. Local additions are pushed,
remote snapshots are merged with the server winning, and every overwrite of
local content is queued as a conflict you can reverse.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides QUOTESYNC_DB_PATH)")
	rootCmd.PersistentFlags().String("remote", "", "Remote base URL (overrides QUOTESYNC_REMOTE_URL)")
}
