package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/remote"
	"github.com/lherron/quotesync/internal/render"
	"github.com/lherron/quotesync/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state of the local collection",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runStatus),
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// statusReport is the shape of status --json and the daemon's /v1/status.
type statusReport struct {
	Remote           string     `json:"remote"`
	LastSyncedAt     *time.Time `json:"last_synced_at"`
	Quotes           int        `json:"quotes"`
	LocalOnly        int        `json:"local_only"`
	PendingConflicts int        `json:"pending_conflicts"`
	SelectedCategory string     `json:"selected_category"`
	Syncing          bool       `json:"syncing,omitempty"`
}

func buildStatus(st *store.Store, endpoint string) (*statusReport, error) {
	report := &statusReport{
		Remote:           endpoint,
		Quotes:           st.Records.Len(),
		LocalOnly:        len(st.Records.UnsyncedLocalOnly()),
		PendingConflicts: st.Conflicts.Len(),
		SelectedCategory: "all",
	}

	last, ok, err := st.Meta.LastSynced()
	if err != nil {
		return nil, err
	}
	if ok {
		report.LastSyncedAt = &last
	}

	selected, err := st.Meta.SelectedCategory()
	if err != nil {
		return nil, err
	}
	if !store.MatchesAll(selected) {
		report.SelectedCategory = selected
	}
	return report, nil
}

func remoteEndpoint(app *appctx.App) string {
	if c, ok := app.Remote.(*remote.Client); ok && c != nil {
		return c.Endpoint()
	}
	return strings.TrimRight(app.Config.RemoteURL, "/") + "/" + app.Config.Collection
}

func runStatus(app *appctx.App, cmd *cobra.Command, args []string) error {
	report, err := buildStatus(app.Store, remoteEndpoint(app))
	if err != nil {
		return err
	}

	if statusJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Remote:      %s\n", report.Remote)
	if report.LastSyncedAt != nil {
		fmt.Fprintf(out, "Last synced: %s\n", report.LastSyncedAt.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintf(out, "Last synced: never\n")
	}
	fmt.Fprintf(out, "Quotes:      %d (%d local-only)\n", report.Quotes, report.LocalOnly)
	fmt.Fprintf(out, "Conflicts:   %d pending\n", report.PendingConflicts)
	fmt.Fprintf(out, "Category:    %s\n", report.SelectedCategory)
	return nil
}
