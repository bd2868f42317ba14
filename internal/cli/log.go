package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/events"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show sync history",
	Long: `Shows recorded sync cycles, newest first.

Examples:
  quotesync log                 # Last 20 cycles
  quotesync log --limit 0       # Everything
  quotesync log --porcelain     # Tab-separated, cursor on stderr
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLog),
}

var (
	logLimit  int
	logCursor string
	logOutput = outputFlags{}
)

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().IntVar(&logLimit, "limit", 20, "Limit number of cycles (0 = unlimited)")
	logCmd.Flags().StringVar(&logCursor, "cursor", "", "Pagination cursor from previous page")
	logOutput.register(logCmd)
}

func runLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	list, next, err := app.History.List(commandContext(cmd), events.ListOptions{
		Limit:  logLimit,
		Cursor: logCursor,
	})
	if err != nil {
		return fmt.Errorf("failed to query sync history: %w", err)
	}

	// Output next_cursor to stderr in porcelain mode
	if logOutput.porcelain && next != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "next_cursor=%s\n", next)
	}

	if len(list) == 0 && !logOutput.structured(app.Config) && !logOutput.porcelain {
		fmt.Fprintln(cmd.OutOrStdout(), "No sync history")
		return nil
	}

	r, err := logOutput.renderer(cmd.OutOrStdout(), app.Config)
	if err != nil {
		return err
	}
	return r.Events(list)
}
