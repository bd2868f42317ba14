package cli

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print a random quote",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runRandom),
}

var (
	randomCategory string
	randomJSON     bool
)

// randomIndex is replaced in tests.
var randomIndex = rand.Intn

func init() {
	rootCmd.AddCommand(randomCmd)

	randomCmd.Flags().StringVarP(&randomCategory, "category", "c", "", "Pick from this category (all = every category)")
	randomCmd.Flags().BoolVar(&randomJSON, "json", false, "Output as JSON")
}

func runRandom(app *appctx.App, cmd *cobra.Command, args []string) error {
	category := randomCategory
	if category == "" {
		selected, err := app.Store.Meta.SelectedCategory()
		if err != nil {
			return err
		}
		category = selected
	}

	records := app.Store.Records.Filter(category)
	if len(records) == 0 {
		return exitError(1, fmt.Errorf("no quotes available"))
	}
	rec := records[randomIndex(len(records))]

	if randomJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%q\n  (%s)\n", rec.Text, rec.Category)
	return nil
}
