package render

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/quotesync/internal/domain"
)

// ConflictDiff returns a unified diff from the local side of a conflict to
// the server side.
func ConflictDiff(c domain.Conflict) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(conflictSide(c.LocalBefore)),
		B:        difflib.SplitLines(conflictSide(c.RemoteIncoming)),
		FromFile: "local",
		ToFile:   "server",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func conflictSide(r domain.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "category: %s\n", r.Category)
	for _, line := range strings.Split(r.Text, "\n") {
		fmt.Fprintf(&b, "%s\n", line)
	}
	return b.String()
}
