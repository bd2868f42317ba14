package sync

import (
	"github.com/lherron/quotesync/internal/domain"
)

// Notifier receives presentation updates after a cycle or a resolution.
// Implementations must not block for long; they run on the caller's goroutine.
type Notifier interface {
	RenderRecords(records []domain.Record)
	RenderConflicts(conflicts []domain.Conflict)
	NotifyStatus(text string)
	NotifyConflictCount(n int)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) RenderRecords([]domain.Record)     {}
func (NopNotifier) RenderConflicts([]domain.Conflict) {}
func (NopNotifier) NotifyStatus(string)               {}
func (NopNotifier) NotifyConflictCount(int)           {}

// MultiNotifier fans every notification out to each member in order.
type MultiNotifier []Notifier

func (m MultiNotifier) RenderRecords(records []domain.Record) {
	for _, n := range m {
		n.RenderRecords(records)
	}
}

func (m MultiNotifier) RenderConflicts(conflicts []domain.Conflict) {
	for _, n := range m {
		n.RenderConflicts(conflicts)
	}
}

func (m MultiNotifier) NotifyStatus(text string) {
	for _, n := range m {
		n.NotifyStatus(text)
	}
}

func (m MultiNotifier) NotifyConflictCount(count int) {
	for _, n := range m {
		n.NotifyConflictCount(count)
	}
}
