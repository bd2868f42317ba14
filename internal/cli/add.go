package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/id"
	"github.com/lherron/quotesync/internal/render"
)

var addCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Add a quote to the local collection",
	Long: `Adds a local-only quote. It is pushed to the remote on the next sync.

Examples:
  quotesync add "Simplicity is prerequisite for reliability." -c Wisdom
  quotesync add -c Humor I used to be indecisive. Now I'm not sure.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runAdd),
}

var (
	addCategory string
	addJSON     bool
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Category for the quote (required)")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "Output the stored record as JSON")
	_ = addCmd.MarkFlagRequired("category")
}

func runAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	rec, err := app.Store.Records.Add(text, addCategory)
	if err != nil {
		return exitError(2, err)
	}

	if addJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s]\n", id.Short(rec.LocalID), rec.Category)
	return nil
}
