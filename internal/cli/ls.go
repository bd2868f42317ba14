package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/cursor"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List quotes",
	Long: `Lists quotes in stored order. Without --category the saved selection
from 'quotesync categories use' applies; --category all lists everything.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLs),
}

var (
	lsCategory string
	lsLimit    int
	lsCursor   string
	lsOutput   = outputFlags{maxText: 60}
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringVarP(&lsCategory, "category", "c", "", "Only list this category (all = every category)")
	lsCmd.Flags().IntVar(&lsLimit, "limit", 0, "Maximum number of results to return (0 = no limit)")
	lsCmd.Flags().StringVar(&lsCursor, "cursor", "", "Pagination cursor from previous page")
	lsOutput.register(lsCmd)
}

func runLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	category := lsCategory
	if category == "" {
		selected, err := app.Store.Meta.SelectedCategory()
		if err != nil {
			return err
		}
		category = selected
	}
	records := app.Store.Records.Filter(category)

	var after *cursor.Cursor
	if lsCursor != "" {
		c, err := cursor.Decode(lsCursor)
		if err != nil {
			return exitError(2, err)
		}
		after = c
	}

	page, next, err := cursor.PageRecords(records, after, lsLimit)
	if err != nil {
		return exitError(2, err)
	}

	// Output next_cursor to stderr in porcelain mode
	if next != nil && lsOutput.porcelain {
		encoded, err := next.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "next_cursor=%s\n", encoded)
	}

	r, err := lsOutput.renderer(cmd.OutOrStdout(), app.Config)
	if err != nil {
		return err
	}
	if len(page) == 0 && !lsOutput.structured(app.Config) && !lsOutput.porcelain {
		fmt.Fprintln(cmd.OutOrStdout(), "No quotes available")
		return nil
	}
	return r.Records(page)
}
