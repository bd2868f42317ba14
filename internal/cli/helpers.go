package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/config"
	"github.com/lherron/quotesync/internal/render"
)

// outputFlags are the machine-output switches shared by listing commands.
type outputFlags struct {
	json      bool
	ndjson    bool
	yaml      bool
	tsv       bool
	porcelain bool
	maxText   int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&o.ndjson, "ndjson", false, "Output as newline-delimited JSON")
	cmd.Flags().BoolVar(&o.yaml, "yaml", false, "Output as YAML")
	cmd.Flags().BoolVar(&o.tsv, "tsv", false, "Output as tab-separated values")
	cmd.Flags().BoolVar(&o.porcelain, "porcelain", false, "Machine-readable output with cursor on stderr")
	cmd.Flags().IntVar(&o.maxText, "max-text", 60, "Truncate text columns in table output (0 = never)")
}

func (o *outputFlags) reset() {
	*o = outputFlags{maxText: 60}
}

// format picks the flag-selected format, falling back to the configured one.
func (o *outputFlags) format(cfg *config.Config) (render.Format, error) {
	switch {
	case o.json:
		return render.FormatJSON, nil
	case o.ndjson:
		return render.FormatNDJSON, nil
	case o.yaml:
		return render.FormatYAML, nil
	case o.tsv:
		return render.FormatTSV, nil
	}
	if cfg == nil || cfg.Output == "" {
		return render.FormatTable, nil
	}
	return render.ParseFormat(cfg.Output)
}

func (o *outputFlags) structured(cfg *config.Config) bool {
	f, err := o.format(cfg)
	return err == nil && (f == render.FormatJSON || f == render.FormatNDJSON || f == render.FormatYAML)
}

func (o *outputFlags) renderer(w io.Writer, cfg *config.Config) (*render.Renderer, error) {
	f, err := o.format(cfg)
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(w, render.Options{
		Format:    f,
		Porcelain: o.porcelain,
		MaxText:   o.maxText,
	}), nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
