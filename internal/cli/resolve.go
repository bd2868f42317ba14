package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/bulk"
	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
	"github.com/lherron/quotesync/internal/selectors"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [selector...]",
	Short: "Resolve conflicts by keeping local or server content",
	Long: `Resolves queued conflicts. --keep local restores the content you had
before the sync; --keep server confirms what the server sent. Either way the
conflict leaves the queue.

Every selector is matched against the queue as it is when the command starts,
so positions do not shift while several conflicts are resolved.

Examples:
  quotesync resolve #0 --keep local
  quotesync resolve r:101 r:102 --keep server
  quotesync resolve --all --keep server
`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runResolve),
}

var (
	resolveKeep            string
	resolveAll             bool
	resolveJobs            int
	resolveContinueOnError bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveKeep, "keep", "", "Which side to keep: local or server (required)")
	resolveCmd.Flags().BoolVar(&resolveAll, "all", false, "Resolve every pending conflict")
	resolveCmd.Flags().IntVarP(&resolveJobs, "jobs", "j", 1, "Parallel workers when resolving several selectors")
	resolveCmd.Flags().BoolVar(&resolveContinueOnError, "continue-on-error", false, "Keep going after a failed selector")
	_ = resolveCmd.MarkFlagRequired("keep")
}

func runResolve(app *appctx.App, cmd *cobra.Command, args []string) error {
	choice, err := domain.ParseChoice(resolveKeep)
	if err != nil {
		return exitError(2, err)
	}

	resolver := app.Resolver(newTextNotifier(cmd.ErrOrStderr(), true))
	out := cmd.OutOrStdout()

	if resolveAll {
		if len(args) > 0 {
			return exitError(2, fmt.Errorf("--all does not take a selector"))
		}
		n, err := resolver.ResolveAll(choice)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Resolved %s (%s)\n", plural(n, "conflict", "conflicts"), choice)
		return nil
	}

	if len(args) == 0 {
		return exitError(2, fmt.Errorf("a conflict selector or --all is required"))
	}

	if len(args) == 1 {
		c, err := selectors.ResolveConflict(app.Store.Conflicts.List(), args[0])
		if err != nil {
			return exitError(1, err)
		}
		if err := resolver.ResolveStrict(c.ID, choice); err != nil {
			return exitError(1, err)
		}
		fmt.Fprintf(out, "Resolved %s for remote %d (%s)\n", id.Short(c.ID), c.RemoteID, choice)
		if remaining := app.Store.Conflicts.Len(); remaining > 0 {
			fmt.Fprintf(out, "%s remaining\n", plural(remaining, "conflict", "conflicts"))
		}
		return nil
	}

	// Map every selector to an identity before anything is removed.
	queue := app.Store.Conflicts.List()
	targets := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, sel := range args {
		c, err := selectors.ResolveConflict(queue, sel)
		if err != nil {
			return exitError(1, fmt.Errorf("%s: %w", sel, err))
		}
		if !seen[c.ID] {
			seen[c.ID] = true
			targets = append(targets, c.ID)
		}
	}

	op := &bulk.Operation{
		Jobs:            resolveJobs,
		ContinueOnError: resolveContinueOnError,
		Log:             out,
	}
	result := op.Execute(targets, func(conflictID string) error {
		return resolver.ResolveStrict(conflictID, choice)
	})
	result.PrintSummary(out)

	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("%d of %d resolutions failed", result.Failed, result.TotalItems))
	}
	return nil
}
