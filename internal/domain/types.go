package domain

import (
	"time"
)

// Origin records the provenance of a record's current content.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "server"
)

// Resolution is the side of a conflict currently applied to the store
type Resolution string

const (
	ResolutionServer Resolution = "server"
	ResolutionLocal  Resolution = "local"
)

// Choice is a human decision on a queued conflict
type Choice string

const (
	ChoiceKeepLocal  Choice = "keep_local"
	ChoiceKeepServer Choice = "keep_server"
)

// Record is a single quote tracked by the store.
// JSON keys match the shape persisted by earlier clients.
type Record struct {
	LocalID   string    `json:"id" yaml:"id"`
	RemoteID  *int64    `json:"serverId,omitempty" yaml:"serverId,omitempty"`
	Text      string    `json:"text" yaml:"text"`
	Category  string    `json:"category" yaml:"category"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	Origin    Origin    `json:"source" yaml:"source"`
}

// HasRemote reports whether the remote authority has accepted the record.
func (r Record) HasRemote() bool {
	return r.RemoteID != nil
}

// RemoteIDValue returns the remote id, or 0 when the record is local-only.
func (r Record) RemoteIDValue() int64 {
	if r.RemoteID == nil {
		return 0
	}
	return *r.RemoteID
}

// SameContent compares the user-visible payload only.
func (r Record) SameContent(other Record) bool {
	return r.Text == other.Text && r.Category == other.Category
}

// Clone returns a deep copy; RemoteID is not shared with the original.
func (r Record) Clone() Record {
	c := r
	if r.RemoteID != nil {
		id := *r.RemoteID
		c.RemoteID = &id
	}
	return c
}

// Conflict is a queued divergence between local and remote content for one
// remote id. The server side is applied when the conflict is detected.
type Conflict struct {
	ID             string     `json:"id" yaml:"id"`
	RemoteID       int64      `json:"serverId" yaml:"serverId"`
	LocalBefore    Record     `json:"localBefore" yaml:"localBefore"`
	RemoteIncoming Record     `json:"serverIncoming" yaml:"serverIncoming"`
	Resolution     Resolution `json:"resolved" yaml:"resolved"`
	DetectedAt     time.Time  `json:"timestamp" yaml:"timestamp"`
}

// Clone returns a deep copy of the conflict and both snapshots.
func (c Conflict) Clone() Conflict {
	out := c
	out.LocalBefore = c.LocalBefore.Clone()
	out.RemoteIncoming = c.RemoteIncoming.Clone()
	return out
}

// RemoteRecord is one item of a pulled snapshot or a create response.
// FetchedAt is synthesized by the client and is not comparable to local clocks.
type RemoteRecord struct {
	RemoteID  int64     `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ToRecord materializes the remote item as a store record.
func (rr RemoteRecord) ToRecord(localID string) Record {
	id := rr.RemoteID
	return Record{
		LocalID:   localID,
		RemoteID:  &id,
		Text:      rr.Text,
		Category:  rr.Category,
		UpdatedAt: rr.FetchedAt,
		Origin:    OriginRemote,
	}
}

// SyncEvent is one row of the sync history
type SyncEvent struct {
	ID               int64     `json:"id" db:"id"`
	Trigger          string    `json:"trigger" db:"trigger"`
	Status           string    `json:"status" db:"status"`
	Pushed           int       `json:"pushed" db:"pushed"`
	PushFailed       int       `json:"push_failed" db:"push_failed"`
	Pulled           int       `json:"pulled" db:"pulled"`
	Inserted         int       `json:"inserted" db:"inserted"`
	Conflicts        int       `json:"conflicts" db:"conflicts"`
	PendingConflicts int       `json:"pending_conflicts" db:"pending_conflicts"`
	Message          string    `json:"message" db:"message"`
	StartedAt        time.Time `json:"started_at" db:"started_at"`
	FinishedAt       time.Time `json:"finished_at" db:"finished_at"`
}
