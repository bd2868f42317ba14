package cli

import (
	"fmt"
	"io"

	"github.com/lherron/quotesync/internal/domain"
)

// textNotifier reports sync and resolution progress as plain lines. Commands
// render listings themselves, so record and conflict views are ignored.
type textNotifier struct {
	w     io.Writer
	quiet bool
}

func newTextNotifier(w io.Writer, quiet bool) *textNotifier {
	return &textNotifier{w: w, quiet: quiet}
}

func (n *textNotifier) RenderRecords([]domain.Record)     {}
func (n *textNotifier) RenderConflicts([]domain.Conflict) {}

func (n *textNotifier) NotifyStatus(text string) {
	if n.quiet || text == "" {
		return
	}
	fmt.Fprintln(n.w, text)
}

func (n *textNotifier) NotifyConflictCount(count int) {
	if n.quiet || count == 0 {
		return
	}
	fmt.Fprintf(n.w, "%s need review (quotesync conflicts)\n", plural(count, "conflict", "conflicts"))
}
