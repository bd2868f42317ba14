package sync

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/store"
)

// Resolver applies human decisions to queued conflicts.
type Resolver struct {
	store    *store.Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	// one resolution at a time within a process
	lock chan struct{}
}

// NewResolver builds a resolver. Nil collaborators get defaults.
func NewResolver(st *store.Store, n Notifier, logger *log.Logger, now func() time.Time) *Resolver {
	if n == nil {
		n = NopNotifier{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: st, notifier: n, logger: logger, now: now, lock: make(chan struct{}, 1)}
}

// Resolve applies choice to the conflict with the given identity and removes
// it from the log. It reports false, with no error, when the conflict or its
// target record does not exist.
func (r *Resolver) Resolve(conflictID string, choice domain.Choice) (bool, error) {
	err := r.resolve(conflictID, choice)
	if err == nil {
		r.refresh()
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// ResolveStrict is Resolve with a missing conflict or record reported as a
// *domain.NotFoundError.
func (r *Resolver) ResolveStrict(conflictID string, choice domain.Choice) error {
	if err := r.resolve(conflictID, choice); err != nil {
		return err
	}
	r.refresh()
	return nil
}

// ResolveAll applies choice to every pending conflict, oldest first, and
// returns how many were resolved. Conflicts whose record is gone stay queued.
func (r *Resolver) ResolveAll(choice domain.Choice) (int, error) {
	resolved := 0
	var firstErr error
	for _, c := range r.store.Conflicts.List() {
		err := r.resolve(c.ID, choice)
		switch {
		case err == nil:
			resolved++
		case isNotFound(err):
			r.logger.Printf("resolve %s skipped: %v", c.ID, err)
		case firstErr == nil:
			firstErr = err
		}
	}
	if resolved > 0 {
		r.refresh()
	}
	return resolved, firstErr
}

func (r *Resolver) resolve(conflictID string, choice domain.Choice) error {
	if choice != domain.ChoiceKeepLocal && choice != domain.ChoiceKeepServer {
		return &domain.ValidationError{Field: "choice", Message: fmt.Sprintf("unknown choice %q", choice)}
	}

	r.lock <- struct{}{}
	defer func() { <-r.lock }()

	c, ok := r.store.Conflicts.Get(conflictID)
	if !ok {
		return &domain.NotFoundError{Resource: "conflict", ID: conflictID}
	}

	err := r.store.Records.Apply(func(records []domain.Record) ([]domain.Record, error) {
		for i := range records {
			if records[i].RemoteID == nil || *records[i].RemoteID != c.RemoteID {
				continue
			}
			side, origin := c.RemoteIncoming, domain.OriginRemote
			if choice == domain.ChoiceKeepLocal {
				side, origin = c.LocalBefore, domain.OriginLocal
			}
			records[i].Text = side.Text
			records[i].Category = side.Category
			records[i].UpdatedAt = r.now()
			records[i].Origin = origin
			return records, nil
		}
		return nil, &domain.NotFoundError{Resource: "record", ID: fmt.Sprintf("remote %d", c.RemoteID)}
	})
	if err != nil {
		return err
	}

	removed, err := r.store.Conflicts.Remove(conflictID)
	if err != nil {
		return fmt.Errorf("remove conflict %s: %w", conflictID, err)
	}
	if !removed {
		// A concurrent resolution of the same conflict got there first.
		return &domain.NotFoundError{Resource: "conflict", ID: conflictID}
	}
	r.logger.Printf("resolved conflict %s for remote %d: %s", conflictID, c.RemoteID, choice)
	return nil
}

func (r *Resolver) refresh() {
	refreshView(r.store, r.notifier, r.logger)
	r.notifier.NotifyConflictCount(r.store.Conflicts.Len())
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
