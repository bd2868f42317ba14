// Package store owns the record collection, the conflict log and sync
// metadata. Every mutation writes the affected collection through to the
// key-value backend before returning.
package store

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lherron/quotesync/internal/kv"
)

// Keys under which state is persisted. They match the keys used by earlier
// clients so existing data loads unchanged.
const (
	KeyQuotes           = "quotes"
	KeyConflicts        = "quoteConflicts"
	KeyLastSynced       = "lastSyncedAt"
	KeySelectedCategory = "selectedCategory"
)

// Options configures Open.
type Options struct {
	// SeedDefaults populates a few starter quotes when no collection exists yet.
	SeedDefaults bool

	// Logger receives load-time diagnostics. Nil discards them.
	Logger *log.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store is the root store that provides access to the owned components.
type Store struct {
	kv kv.Store

	Records   *RecordStore
	Conflicts *ConflictLog
	Meta      *Meta
}

// Open loads persisted state from backend and returns the owned components.
func Open(backend kv.Store, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{kv: backend}
	s.Records = &RecordStore{kv: backend, now: opts.Now, logger: opts.Logger}
	s.Conflicts = &ConflictLog{kv: backend, logger: opts.Logger}
	s.Meta = &Meta{kv: backend}

	if err := s.Records.load(opts.SeedDefaults); err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if err := s.Conflicts.load(); err != nil {
		return nil, fmt.Errorf("failed to load conflicts: %w", err)
	}

	return s, nil
}

// KV returns the backing key-value store.
func (s *Store) KV() kv.Store {
	return s.kv
}
