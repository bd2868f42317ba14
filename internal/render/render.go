// Package render writes records, conflicts and sync history for humans and
// scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
)

// Format represents an output format
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTSV    Format = "tsv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatNDJSON, FormatYAML, FormatTSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, ndjson, yaml or tsv)", s)
	}
}

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
	// MaxText truncates quote text in tables; 0 disables truncation.
	MaxText int
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Renderer{writer: writer, opts: opts}
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderNDJSON renders each item as one JSON line
func (r *Renderer) RenderNDJSON(items []interface{}) error {
	encoder := json.NewEncoder(r.writer)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

// RenderTable renders rows under headers. Porcelain output is tab-separated
// with no padding.
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if r.opts.Porcelain || r.opts.Format == FormatTSV {
		return r.renderTSV(headers, rows)
	}
	if len(rows) == 0 {
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	r.renderTableRow(headers, widths)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	r.renderTableRow(seps, widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
	return nil
}

func (r *Renderer) renderTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		clean := make([]string, len(row))
		for i, cell := range row {
			clean[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(cell)
		}
		if _, err := fmt.Fprintln(r.writer, strings.Join(clean, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	var b strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		b.WriteString(cell)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+2))
		}
	}
	fmt.Fprintln(r.writer, b.String())
}

// structured renders v in a machine format and reports whether it did.
func (r *Renderer) structured(v interface{}, items []interface{}) (bool, error) {
	switch r.opts.Format {
	case FormatJSON:
		return true, r.RenderJSON(v)
	case FormatNDJSON:
		return true, r.RenderNDJSON(items)
	case FormatYAML:
		return true, r.RenderYAML(v)
	}
	return false, nil
}

// Records renders a record listing.
func (r *Renderer) Records(records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	items := make([]interface{}, len(records))
	for i := range records {
		items[i] = records[i]
	}
	if done, err := r.structured(records, items); done {
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		remote := "-"
		if rec.HasRemote() {
			remote = strconv.FormatInt(*rec.RemoteID, 10)
		}
		localID := rec.LocalID
		if !r.opts.Porcelain {
			localID = id.Short(localID)
		}
		rows = append(rows, []string{localID, remote, string(rec.Origin), rec.Category, r.text(rec.Text)})
	}
	return r.RenderTable([]string{"ID", "REMOTE", "ORIGIN", "CATEGORY", "TEXT"}, rows)
}

// Conflicts renders the pending conflict queue with positional selectors.
func (r *Renderer) Conflicts(conflicts []domain.Conflict) error {
	if conflicts == nil {
		conflicts = []domain.Conflict{}
	}
	items := make([]interface{}, len(conflicts))
	for i := range conflicts {
		items[i] = conflicts[i]
	}
	if done, err := r.structured(conflicts, items); done {
		return err
	}

	rows := make([][]string, 0, len(conflicts))
	for i, c := range conflicts {
		cid := c.ID
		if !r.opts.Porcelain {
			cid = id.Short(cid)
		}
		rows = append(rows, []string{
			"#" + strconv.Itoa(i),
			cid,
			strconv.FormatInt(c.RemoteID, 10),
			r.text(c.RemoteIncoming.Text) + " [" + c.RemoteIncoming.Category + "]",
			r.text(c.LocalBefore.Text) + " [" + c.LocalBefore.Category + "]",
		})
	}
	return r.RenderTable([]string{"#", "ID", "REMOTE", "SERVER", "LOCAL"}, rows)
}

// Events renders sync history rows.
func (r *Renderer) Events(events []domain.SyncEvent) error {
	if events == nil {
		events = []domain.SyncEvent{}
	}
	items := make([]interface{}, len(events))
	for i := range events {
		items[i] = events[i]
	}
	if done, err := r.structured(events, items); done {
		return err
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.StartedAt.Local().Format("2006-01-02 15:04:05"),
			ev.Trigger,
			ev.Status,
			fmt.Sprintf("%d/%d", ev.Pushed, ev.Pushed+ev.PushFailed),
			strconv.Itoa(ev.Pulled),
			strconv.Itoa(ev.Inserted),
			strconv.Itoa(ev.Conflicts),
			ev.FinishedAt.Sub(ev.StartedAt).Round(1e6).String(),
		})
	}
	return r.RenderTable([]string{"STARTED", "TRIGGER", "STATUS", "PUSHED", "PULLED", "NEW", "CONFLICTS", "TOOK"}, rows)
}

func (r *Renderer) text(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r.opts.MaxText <= 0 || r.opts.Porcelain || utf8.RuneCountInString(s) <= r.opts.MaxText {
		return s
	}
	runes := []rune(s)
	return string(runes[:r.opts.MaxText-1]) + "…"
}
