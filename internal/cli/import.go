package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/render"
	"github.com/lherron/quotesync/internal/snapshot"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge quotes from a JSON or YAML file",
	Long: `Imports a list of quotes. Entries whose id matches a stored quote replace
it; the rest are appended. Missing ids, timestamps and origins are filled in
the same way as when loading older data. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImport),
}

var (
	importFormat string
	importDryRun bool
	importJSON   bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFormat, "format", "", "Input format: json or yaml (default: from file extension)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would change without writing")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Report the import result as JSON")
}

func runImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	opts := snapshot.ImportOptions{
		InputPath: args[0],
		Format:    importFormat,
		DryRun:    importDryRun,
	}

	var (
		result *snapshot.ImportResult
		err    error
	)
	if args[0] == "-" {
		data, rerr := io.ReadAll(cmd.InOrStdin())
		if rerr != nil {
			return fmt.Errorf("failed to read stdin: %w", rerr)
		}
		opts.InputPath = ""
		result, err = snapshot.ImportBytes(app.Store, data, opts, time.Now())
	} else {
		result, err = snapshot.Import(app.Store, opts, time.Now())
	}
	if err != nil {
		return exitError(1, err)
	}

	if importJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(result)
	}
	verb := "Imported"
	if result.DryRun {
		verb = "Would import"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d added, %d updated, %d total\n", verb, result.Added, result.Updated, result.Total)
	return nil
}
