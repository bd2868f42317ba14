package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
	"github.com/lherron/quotesync/internal/kv"
)

// ConflictLog is the ordered queue of unresolved conflicts.
type ConflictLog struct {
	mu        sync.RWMutex
	kv        kv.Store
	conflicts []domain.Conflict
	logger    *log.Logger
}

func (cl *ConflictLog) load() error {
	raw, ok, err := cl.kv.Get(KeyConflicts)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var stored []domain.Conflict
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to decode stored conflicts: %w", err)
	}

	assigned := 0
	for i := range stored {
		if stored[i].ID == "" {
			stored[i].ID = id.NewConflictID()
			assigned++
		}
		if stored[i].Resolution == "" {
			stored[i].Resolution = domain.ResolutionServer
		}
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if assigned == 0 {
		cl.conflicts = stored
		return nil
	}
	cl.logger.Printf("store: assigned ids to %d legacy conflicts", assigned)
	return cl.persistLocked(stored)
}

// persistLocked writes next through to the backend and adopts it on success.
// Caller must hold cl.mu.
func (cl *ConflictLog) persistLocked(next []domain.Conflict) error {
	if next == nil {
		next = []domain.Conflict{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode conflicts: %w", err)
	}
	if err := cl.kv.Put(KeyConflicts, data); err != nil {
		return fmt.Errorf("failed to persist conflicts: %w", err)
	}
	cl.conflicts = next
	return nil
}

func cloneConflicts(in []domain.Conflict) []domain.Conflict {
	out := make([]domain.Conflict, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// List returns the pending conflicts, oldest first.
func (cl *ConflictLog) List() []domain.Conflict {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cloneConflicts(cl.conflicts)
}

// Len returns the number of pending conflicts.
func (cl *ConflictLog) Len() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.conflicts)
}

// Get returns the conflict with the given identity.
func (cl *ConflictLog) Get(conflictID string) (domain.Conflict, bool) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	for _, c := range cl.conflicts {
		if c.ID == conflictID {
			return c.Clone(), true
		}
	}
	return domain.Conflict{}, false
}

// At returns the conflict at a position in the current ordering. Positions
// shift as conflicts are appended or removed; resolve by ID.
func (cl *ConflictLog) At(index int) (domain.Conflict, bool) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if index < 0 || index >= len(cl.conflicts) {
		return domain.Conflict{}, false
	}
	return cl.conflicts[index].Clone(), true
}

// Append adds conflicts to the end of the queue in one write. Conflicts
// without an ID are given one.
func (cl *ConflictLog) Append(conflicts ...domain.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	next := cloneConflicts(cl.conflicts)
	for _, c := range conflicts {
		c = c.Clone()
		if c.ID == "" {
			c.ID = id.NewConflictID()
		}
		if c.Resolution == "" {
			c.Resolution = domain.ResolutionServer
		}
		next = append(next, c)
	}
	return cl.persistLocked(next)
}

// RemoveAll deletes every conflict whose identity is listed, in one write, and
// returns how many were removed.
func (cl *ConflictLog) RemoveAll(conflictIDs ...string) (int, error) {
	if len(conflictIDs) == 0 {
		return 0, nil
	}
	drop := make(map[string]bool, len(conflictIDs))
	for _, cid := range conflictIDs {
		drop[cid] = true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	next := make([]domain.Conflict, 0, len(cl.conflicts))
	for _, c := range cl.conflicts {
		if !drop[c.ID] {
			next = append(next, c)
		}
	}
	removed := len(cl.conflicts) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := cl.persistLocked(next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Remove deletes the conflict with the given identity. It reports false when
// no such conflict exists.
func (cl *ConflictLog) Remove(conflictID string) (bool, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	idx := -1
	for i, c := range cl.conflicts {
		if c.ID == conflictID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	next := make([]domain.Conflict, 0, len(cl.conflicts)-1)
	next = append(next, cl.conflicts[:idx]...)
	next = append(next, cl.conflicts[idx+1:]...)
	if err := cl.persistLocked(next); err != nil {
		return false, err
	}
	return true, nil
}
