package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
	qsync "github.com/lherron/quotesync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local quotes and merge the remote snapshot",
	Long: `Runs one sync cycle: every local-only quote is sent to the remote, then
the remote snapshot is fetched and merged with the server winning. Local
content the server overwrote is queued under 'quotesync conflicts'.

A failed push leaves the quote local-only for the next sync. A failed fetch
leaves the local collection untouched.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.WithRemote(), runSync),
}

var (
	syncJSON  bool
	syncQuiet bool
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Output the cycle result as JSON")
	syncCmd.Flags().BoolVarP(&syncQuiet, "quiet", "q", false, "Only report failures")
}

func runSync(app *appctx.App, cmd *cobra.Command, args []string) error {
	notifier := newTextNotifier(cmd.OutOrStdout(), syncQuiet || syncJSON)
	engine := app.Engine(notifier)

	res, err := engine.Run(commandContext(cmd), qsync.TriggerManual)
	if syncJSON && res != nil {
		if rerr := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(res); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return exitError(1, err)
	}
	return nil
}
