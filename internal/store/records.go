package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
	"github.com/lherron/quotesync/internal/kv"
)

// DuplicateRemoteIDError is returned when a write would give a remote id to a
// second record.
type DuplicateRemoteIDError struct {
	RemoteID int64
	HeldBy   string
	LocalID  string
}

func (e *DuplicateRemoteIDError) Error() string {
	return fmt.Sprintf("remote id %d already held by %s (cannot assign to %s)", e.RemoteID, e.HeldBy, e.LocalID)
}

// RecordStore holds the ordered record collection.
type RecordStore struct {
	mu      sync.RWMutex
	kv      kv.Store
	records []domain.Record
	now     func() time.Time
	logger  *log.Logger
}

// StoredRecord is the persisted shape, lenient about fields older clients
// did not write.
type StoredRecord struct {
	ID        string `json:"id" yaml:"id"`
	ServerID  *int64 `json:"serverId,omitempty" yaml:"serverId,omitempty"`
	Text      string `json:"text" yaml:"text"`
	Category  string `json:"category" yaml:"category"`
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
	Source    string `json:"source" yaml:"source"`
}

var defaultQuotes = []struct{ text, category string }{
	{"The best way to predict the future is to create it.", "Inspiration"},
	{"Do not watch the clock. Do what it does. Keep going.", "Motivation"},
	{"Life is 10% what happens to us and 90% how we react to it.", "Life"},
}

func (rs *RecordStore) load(seed bool) error {
	raw, ok, err := rs.kv.Get(KeyQuotes)
	if err != nil {
		return err
	}

	if !ok {
		if !seed {
			return nil
		}
		now := rs.now()
		seeded := make([]domain.Record, 0, len(defaultQuotes))
		for _, q := range defaultQuotes {
			seeded = append(seeded, domain.Record{
				LocalID:   id.NewLocalID(),
				Text:      q.text,
				Category:  q.category,
				UpdatedAt: now,
				Origin:    domain.OriginLocal,
			})
		}
		rs.mu.Lock()
		defer rs.mu.Unlock()
		return rs.persistLocked(seeded)
	}

	var stored []StoredRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to decode stored quotes: %w", err)
	}

	records := NormalizeStored(stored, rs.now())
	records = dedupeRemoteIDs(records, rs.logger)

	rs.mu.Lock()
	rs.records = records
	rs.mu.Unlock()
	return nil
}

// NormalizeStored migrates persisted or imported entries to the current
// model: missing ids are generated, missing timestamps become now, and a
// missing source is derived from the presence of a server id.
func NormalizeStored(stored []StoredRecord, now time.Time) []domain.Record {
	records := make([]domain.Record, 0, len(stored))
	for _, s := range stored {
		rec := domain.Record{
			LocalID:   s.ID,
			RemoteID:  s.ServerID,
			Text:      s.Text,
			Category:  s.Category,
			UpdatedAt: now,
			Origin:    domain.Origin(s.Source),
		}
		if rec.LocalID == "" {
			rec.LocalID = id.NewLocalID()
		}
		if s.UpdatedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, s.UpdatedAt); err == nil {
				rec.UpdatedAt = t
			}
		}
		if domain.ValidateOrigin(s.Source) != nil {
			if rec.RemoteID != nil {
				rec.Origin = domain.OriginRemote
			} else {
				rec.Origin = domain.OriginLocal
			}
		}
		records = append(records, rec)
	}
	return records
}

// dedupeRemoteIDs clears the remote id from later records that repeat an
// earlier one. Their content is kept and they become local-only again.
func dedupeRemoteIDs(records []domain.Record, logger *log.Logger) []domain.Record {
	seenRemote := make(map[int64]string)
	seenLocal := make(map[string]bool)
	for i := range records {
		if seenLocal[records[i].LocalID] {
			old := records[i].LocalID
			records[i].LocalID = id.NewLocalID()
			logger.Printf("store: duplicate local id %s reassigned to %s", old, records[i].LocalID)
		}
		seenLocal[records[i].LocalID] = true

		if records[i].RemoteID == nil {
			continue
		}
		rid := *records[i].RemoteID
		if holder, dup := seenRemote[rid]; dup {
			logger.Printf("store: remote id %d on %s already held by %s, marking local-only", rid, records[i].LocalID, holder)
			records[i].RemoteID = nil
			records[i].Origin = domain.OriginLocal
			continue
		}
		seenRemote[rid] = records[i].LocalID
	}
	return records
}

// persistLocked writes next through to the backend and adopts it on success.
// Caller must hold rs.mu.
func (rs *RecordStore) persistLocked(next []domain.Record) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode quotes: %w", err)
	}
	if err := rs.kv.Put(KeyQuotes, data); err != nil {
		return fmt.Errorf("failed to persist quotes: %w", err)
	}
	rs.records = next
	return nil
}

func cloneAll(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// All returns every record in insertion order.
func (rs *RecordStore) All() []domain.Record {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return cloneAll(rs.records)
}

// Len returns the number of records.
func (rs *RecordStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.records)
}

// FindByLocalID looks up a record by its primary key.
func (rs *RecordStore) FindByLocalID(localID string) (domain.Record, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for _, r := range rs.records {
		if r.LocalID == localID {
			return r.Clone(), true
		}
	}
	return domain.Record{}, false
}

// FindByRemoteID looks up the single record holding remoteID.
func (rs *RecordStore) FindByRemoteID(remoteID int64) (domain.Record, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for _, r := range rs.records {
		if r.RemoteID != nil && *r.RemoteID == remoteID {
			return r.Clone(), true
		}
	}
	return domain.Record{}, false
}

// UnsyncedLocalOnly returns records the remote has not accepted yet.
func (rs *RecordStore) UnsyncedLocalOnly() []domain.Record {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var out []domain.Record
	for _, r := range rs.records {
		if r.RemoteID == nil {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Add creates a local-only record from user input.
func (rs *RecordStore) Add(text, category string) (domain.Record, error) {
	text = strings.TrimSpace(text)
	category = strings.TrimSpace(category)
	if err := domain.ValidateText(text); err != nil {
		return domain.Record{}, err
	}
	if err := domain.ValidateCategory(category); err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{
		LocalID:   id.NewLocalID(),
		Text:      text,
		Category:  category,
		UpdatedAt: rs.now(),
		Origin:    domain.OriginLocal,
	}
	if err := rs.UpsertByLocalID(rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// UpsertByLocalID replaces the record with rec.LocalID, or appends rec.
//
// A new record carrying a remote id that another record already holds is
// folded into the holder instead of being appended. An existing record may
// not take over a remote id held by a different record; that returns a
// *DuplicateRemoteIDError and leaves the store unchanged.
func (rs *RecordStore) UpsertByLocalID(rec domain.Record) error {
	if rec.LocalID == "" {
		return &domain.ValidationError{Field: "id", Message: "must not be empty"}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	next := cloneAll(rs.records)
	if err := upsertInto(&next, rec.Clone()); err != nil {
		return err
	}
	return rs.persistLocked(next)
}

func upsertInto(records *[]domain.Record, rec domain.Record) error {
	list := *records
	selfIdx, holderIdx := -1, -1
	for i, r := range list {
		if r.LocalID == rec.LocalID {
			selfIdx = i
		}
		if rec.RemoteID != nil && r.RemoteID != nil && *r.RemoteID == *rec.RemoteID && r.LocalID != rec.LocalID {
			holderIdx = i
		}
	}

	switch {
	case holderIdx >= 0 && selfIdx >= 0:
		return &DuplicateRemoteIDError{RemoteID: *rec.RemoteID, HeldBy: list[holderIdx].LocalID, LocalID: rec.LocalID}
	case holderIdx >= 0:
		holder := &list[holderIdx]
		holder.Text = rec.Text
		holder.Category = rec.Category
		holder.UpdatedAt = rec.UpdatedAt
		holder.Origin = rec.Origin
	case selfIdx >= 0:
		list[selfIdx] = rec
	default:
		list = append(list, rec)
	}

	*records = list
	return nil
}

// ReplaceAll swaps in an entire collection with a single write.
func (rs *RecordStore) ReplaceAll(records []domain.Record) error {
	next := cloneAll(records)
	if err := ValidateCollection(next); err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.persistLocked(next)
}

// Apply runs fn on a copy of the current collection while holding the write
// lock and persists the result in one write. If fn fails, or the result breaks
// id uniqueness, nothing is written.
func (rs *RecordStore) Apply(fn func(current []domain.Record) ([]domain.Record, error)) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	next, err := fn(cloneAll(rs.records))
	if err != nil {
		return err
	}
	if err := ValidateCollection(next); err != nil {
		return err
	}
	return rs.persistLocked(next)
}

// ValidateCollection checks local id presence and uniqueness and remote id
// uniqueness.
func ValidateCollection(records []domain.Record) error {
	locals := make(map[string]bool, len(records))
	remotes := make(map[int64]string, len(records))
	for _, r := range records {
		if r.LocalID == "" {
			return &domain.ValidationError{Field: "id", Message: "must not be empty"}
		}
		if locals[r.LocalID] {
			return &domain.ValidationError{Field: "id", Message: fmt.Sprintf("duplicate local id %s", r.LocalID)}
		}
		locals[r.LocalID] = true
		if r.RemoteID == nil {
			continue
		}
		if holder, dup := remotes[*r.RemoteID]; dup {
			return &DuplicateRemoteIDError{RemoteID: *r.RemoteID, HeldBy: holder, LocalID: r.LocalID}
		}
		remotes[*r.RemoteID] = r.LocalID
	}
	return nil
}

// Filter returns records whose category matches case-insensitively.
// An empty category or "all" matches everything.
func (rs *RecordStore) Filter(category string) []domain.Record {
	all := rs.All()
	if MatchesAll(category) {
		return all
	}
	var out []domain.Record
	for _, r := range all {
		if strings.EqualFold(r.Category, category) {
			out = append(out, r)
		}
	}
	return out
}

// MatchesAll reports whether a category filter selects every record.
func MatchesAll(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, "all")
}

// Categories returns the distinct categories, sorted.
func (rs *RecordStore) Categories() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs.records {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Merge upserts incoming records by local id in one write, with the same
// remote id rules as UpsertByLocalID. It returns how many records were added
// and how many existing ones were updated. Any rejected entry aborts the
// whole merge.
func (rs *RecordStore) Merge(incoming []domain.Record) (added, updated int, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	next := cloneAll(rs.records)
	for _, rec := range incoming {
		if rec.LocalID == "" {
			return 0, 0, &domain.ValidationError{Field: "id", Message: "must not be empty"}
		}
		before := len(next)
		if err := upsertInto(&next, rec.Clone()); err != nil {
			return 0, 0, err
		}
		if len(next) > before {
			added++
		} else {
			updated++
		}
	}
	if err := ValidateCollection(next); err != nil {
		return 0, 0, err
	}
	if err := rs.persistLocked(next); err != nil {
		return 0, 0, err
	}
	return added, updated, nil
}
