package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
	"github.com/lherron/quotesync/internal/selectors"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List conflicts waiting for review",
	Long: `Lists local content the server overwrote during sync, oldest first.

Conflicts can be addressed by position (#0), by the remote id of the
affected quote (r:101), or by id or a unique id prefix.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runConflicts),
}

var conflictsShowCmd = &cobra.Command{
	Use:   "show <selector>",
	Short: "Show a conflict as a diff of local against server content",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runConflictsShow),
}

var (
	conflictsOutput   = outputFlags{maxText: 40}
	conflictsShowJSON bool
)

func init() {
	rootCmd.AddCommand(conflictsCmd)
	conflictsCmd.AddCommand(conflictsShowCmd)

	conflictsOutput.register(conflictsCmd)
	conflictsShowCmd.Flags().BoolVar(&conflictsShowJSON, "json", false, "Output as JSON")
}

func runConflicts(app *appctx.App, cmd *cobra.Command, args []string) error {
	list := app.Store.Conflicts.List()
	if len(list) == 0 && !conflictsOutput.structured(app.Config) && !conflictsOutput.porcelain {
		fmt.Fprintln(cmd.OutOrStdout(), "No conflicts")
		return nil
	}

	r, err := conflictsOutput.renderer(cmd.OutOrStdout(), app.Config)
	if err != nil {
		return err
	}
	return r.Conflicts(list)
}

func runConflictsShow(app *appctx.App, cmd *cobra.Command, args []string) error {
	c, err := selectors.ResolveConflict(app.Store.Conflicts.List(), args[0])
	if err != nil {
		return exitError(1, err)
	}

	if conflictsShowJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(c)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "conflict %s\n", c.ID)
	fmt.Fprintf(out, "remote:   %d\n", c.RemoteID)
	fmt.Fprintf(out, "detected: %s\n\n", c.DetectedAt.Local().Format("2006-01-02 15:04:05"))

	diff, err := render.ConflictDiff(c)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(out, "(local and server content are identical)")
		return nil
	}
	fmt.Fprint(out, diff)
	return nil
}
