package store

import (
	"fmt"
	"time"

	"github.com/lherron/quotesync/internal/kv"
)

// Meta holds small scalar settings that live next to the collections.
type Meta struct {
	kv kv.Store
}

// LastSynced returns the finish time of the last cycle that completed a pull.
func (m *Meta) LastSynced() (time.Time, bool, error) {
	raw, ok, err := m.kv.Get(KeyLastSynced)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s value %q: %w", KeyLastSynced, raw, err)
	}
	return t, true, nil
}

// SetLastSynced records t as the last successful sync.
func (m *Meta) SetLastSynced(t time.Time) error {
	return m.kv.Put(KeyLastSynced, []byte(t.UTC().Format(time.RFC3339Nano)))
}

// SelectedCategory returns the remembered category filter, or "" when unset.
func (m *Meta) SelectedCategory() (string, error) {
	raw, ok, err := m.kv.Get(KeySelectedCategory)
	if err != nil || !ok {
		return "", err
	}
	return string(raw), nil
}

// SetSelectedCategory remembers the active category filter.
func (m *Meta) SetSelectedCategory(category string) error {
	if MatchesAll(category) {
		return m.kv.Delete(KeySelectedCategory)
	}
	return m.kv.Put(KeySelectedCategory, []byte(category))
}
