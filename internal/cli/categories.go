package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
	"github.com/lherron/quotesync/internal/store"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Long:  `Lists the distinct categories in the collection. The saved selection is marked with *.`,
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCategories),
}

var categoriesUseCmd = &cobra.Command{
	Use:   "use <category|all>",
	Short: "Save the category that ls and random use by default",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCategoriesUse),
}

var categoriesJSON bool

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesUseCmd)

	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "Output as JSON")
}

func runCategories(app *appctx.App, cmd *cobra.Command, args []string) error {
	categories := app.Store.Records.Categories()
	selected, err := app.Store.Meta.SelectedCategory()
	if err != nil {
		return err
	}

	if categoriesJSON {
		if categories == nil {
			categories = []string{}
		}
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(map[string]interface{}{
			"categories": categories,
			"selected":   selected,
		})
	}

	out := cmd.OutOrStdout()
	mark := func(active bool) string {
		if active {
			return "*"
		}
		return " "
	}
	fmt.Fprintf(out, "%s all\n", mark(store.MatchesAll(selected)))
	for _, c := range categories {
		fmt.Fprintf(out, "%s %s\n", mark(strings.EqualFold(c, selected)), c)
	}
	return nil
}

func runCategoriesUse(app *appctx.App, cmd *cobra.Command, args []string) error {
	category := args[0]
	if err := app.Store.Meta.SetSelectedCategory(category); err != nil {
		return err
	}
	if store.MatchesAll(category) {
		fmt.Fprintln(cmd.OutOrStdout(), "Showing all categories")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Showing category %s\n", category)
	return nil
}
