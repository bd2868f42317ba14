package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
	"github.com/lherron/quotesync/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the collection to a JSON file",
	Long: `Exports quotes as a JSON array (quotes.json by default). --canonical
writes the compact sorted form whose sha256 revision is stable across runs.
Use -o - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runExport),
}

var (
	exportOutput    string
	exportCanonical bool
	exportCategory  string
	exportJSON      bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", snapshot.DefaultOutputPath, "Output file (- for stdout)")
	exportCmd.Flags().BoolVar(&exportCanonical, "canonical", false, "Write compact canonical JSON")
	exportCmd.Flags().StringVarP(&exportCategory, "category", "c", "", "Only export this category")
	exportCmd.Flags().BoolVar(&exportJSON, "json", false, "Report the export result as JSON")
}

func runExport(app *appctx.App, cmd *cobra.Command, args []string) error {
	opts := snapshot.ExportOptions{
		OutputPath: exportOutput,
		Canonical:  exportCanonical,
		Category:   exportCategory,
	}

	if exportOutput == "-" {
		data, _, err := snapshot.Render(app.Store, opts)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	result, err := snapshot.Export(app.Store, opts)
	if err != nil {
		return exitError(1, err)
	}

	if exportJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s (%s)\n",
		plural(result.RecordCount, "quote", "quotes"), result.OutputPath, result.SnapshotRev)
	return nil
}
