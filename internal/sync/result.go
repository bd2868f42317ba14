package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/lherron/quotesync/internal/domain"
)

// Trigger identifies what started a cycle.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Status summarizes how a cycle ended.
type Status string

const (
	StatusOK             Status = "ok"
	StatusPushPartial    Status = "ok_push_partial"
	StatusPullFailed     Status = "pull_failed"
	StatusFinalizeFailed Status = "finalize_failed"
	StatusSkipped        Status = "skipped"
)

// Result reports what one cycle did.
type Result struct {
	Trigger    Trigger   `json:"trigger"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Pushed     int `json:"pushed"`
	PushFailed int `json:"push_failed"`
	Pulled     int `json:"pulled"`
	Inserted   int `json:"inserted"`
	Confirmed  int `json:"confirmed"`
	Conflicts  int `json:"conflicts"`

	PendingConflicts int    `json:"pending_conflicts"`
	Message          string `json:"message"`

	// LastSyncUnsaved is set when the merge was saved but the last sync
	// time could not be.
	LastSyncUnsaved bool `json:"last_sync_unsaved,omitempty"`

	Err error `json:"-"`
}

// Duration is the wall time of the cycle.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the pull and merge completed.
func (r *Result) Succeeded() bool {
	return r.Status == StatusOK || r.Status == StatusPushPartial
}

// Event converts the result to a sync history row.
func (r *Result) Event() domain.SyncEvent {
	return domain.SyncEvent{
		Trigger:          string(r.Trigger),
		Status:           string(r.Status),
		Pushed:           r.Pushed,
		PushFailed:       r.PushFailed,
		Pulled:           r.Pulled,
		Inserted:         r.Inserted,
		Conflicts:        r.Conflicts,
		PendingConflicts: r.PendingConflicts,
		Message:          r.Message,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
}

func (r *Result) describe() string {
	switch r.Status {
	case StatusSkipped:
		return "Sync skipped: a cycle is already running."
	case StatusPullFailed:
		msg := "Sync failed (offline or API error)."
		if r.PushFailed > 0 {
			msg += fmt.Sprintf(" %d of %d pushes also failed.", r.PushFailed, r.PushFailed+r.Pushed)
		}
		return msg
	case StatusFinalizeFailed:
		return "Sync failed: could not save merged data."
	}

	var b strings.Builder
	if r.LastSyncUnsaved {
		fmt.Fprintf(&b, "Synced at %s (last sync time not saved)", r.FinishedAt.Local().Format(time.Kitchen))
	} else {
		fmt.Fprintf(&b, "Last synced: %s", r.FinishedAt.Local().Format(time.Kitchen))
	}
	if r.PushFailed > 0 {
		fmt.Fprintf(&b, " (push partially failed: %d of %d not sent)", r.PushFailed, r.PushFailed+r.Pushed)
	}
	if r.Conflicts > 0 {
		fmt.Fprintf(&b, "; %d new conflict(s)", r.Conflicts)
	}
	return b.String()
}
