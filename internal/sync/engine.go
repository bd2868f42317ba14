// Package sync reconciles the local store with the remote authority.
//
// A cycle pushes local-only records, pulls a bounded snapshot, merges it with
// the remote side winning, and finalizes. Overwritten local content is kept
// in the conflict log until someone resolves it.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
	"github.com/lherron/quotesync/internal/remote"
	"github.com/lherron/quotesync/internal/store"
)

// DefaultPullLimit is the snapshot page size.
const DefaultPullLimit = 12

// ErrCycleInProgress is returned by Run when another cycle holds the engine.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// Observer is told about every finished or skipped cycle.
type Observer interface {
	ObserveCycle(res *Result)
}

// MultiObserver hands every cycle to each member in order.
type MultiObserver []Observer

func (m MultiObserver) ObserveCycle(res *Result) {
	for _, o := range m {
		if o != nil {
			o.ObserveCycle(res)
		}
	}
}

// HistoryWriter persists finished cycles.
type HistoryWriter interface {
	Append(ctx context.Context, ev domain.SyncEvent) (int64, error)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	PullLimit int
	Notifier  Notifier
	Observer  Observer
	History   HistoryWriter
	Logger    *log.Logger
	Now       func() time.Time
	NewID     func() string
}

// Engine runs sync cycles against one store and one gateway.
type Engine struct {
	store     *store.Store
	gateway   remote.Gateway
	pullLimit int
	notifier  Notifier
	observer  Observer
	history   HistoryWriter
	logger    *log.Logger
	now       func() time.Time
	newID     func() string

	// sem is a one-slot semaphore; holding it means a cycle is running.
	sem chan struct{}
}

// NewEngine builds an engine over st and gw.
func NewEngine(st *store.Store, gw remote.Gateway, opts Options) *Engine {
	e := &Engine{
		store:     st,
		gateway:   gw,
		pullLimit: opts.PullLimit,
		notifier:  opts.Notifier,
		observer:  opts.Observer,
		history:   opts.History,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		sem:       make(chan struct{}, 1),
	}
	if e.pullLimit <= 0 {
		e.pullLimit = DefaultPullLimit
	}
	if e.notifier == nil {
		e.notifier = NopNotifier{}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = id.NewLocalID
	}
	return e
}

// Store returns the store the engine syncs.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Running reports whether a cycle is in progress.
func (e *Engine) Running() bool {
	return len(e.sem) > 0
}

// Run executes one cycle. It never blocks waiting for another cycle: if one
// is running it returns a skipped result and ErrCycleInProgress.
//
// A failed pull aborts the cycle before merge and is returned as an error;
// push results from the same cycle stay applied. Individual push failures
// are reported in the result only.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (*Result, error) {
	select {
	case e.sem <- struct{}{}:
	default:
		now := e.now()
		res := &Result{Trigger: trigger, Status: StatusSkipped, StartedAt: now, FinishedAt: now}
		res.PendingConflicts = e.store.Conflicts.Len()
		res.Message = res.describe()
		e.logger.Printf("%s sync skipped: cycle in progress", trigger)
		e.observe(res)
		return res, ErrCycleInProgress
	}
	defer func() { <-e.sem }()

	res := &Result{Trigger: trigger, StartedAt: e.now()}
	e.logger.Printf("%s sync started", trigger)

	e.push(ctx, res)

	snapshot, err := e.gateway.FetchSnapshot(ctx, e.pullLimit)
	if err != nil {
		res.Status = StatusPullFailed
		res.Err = fmt.Errorf("pull: %w", err)
		return e.finish(ctx, res), res.Err
	}
	res.Pulled = len(snapshot)

	if err := e.apply(snapshot, res); err != nil {
		res.Status = StatusFinalizeFailed
		res.Err = fmt.Errorf("finalize: %w", err)
		return e.finish(ctx, res), res.Err
	}

	res.Status = StatusOK
	if res.PushFailed > 0 {
		res.Status = StatusPushPartial
	}
	return e.finish(ctx, res), nil
}

// push sends every local-only record. Each record succeeds or fails on its
// own; failures leave the record local-only for the next cycle.
func (e *Engine) push(ctx context.Context, res *Result) {
	for _, rec := range e.store.Records.UnsyncedLocalOnly() {
		created, err := e.gateway.Create(ctx, rec.Text, rec.Category)
		if err != nil {
			res.PushFailed++
			e.logger.Printf("push %s failed: %v", id.Short(rec.LocalID), err)
			continue
		}

		current, ok := e.store.Records.FindByLocalID(rec.LocalID)
		if !ok || current.HasRemote() {
			continue
		}
		rid := created.RemoteID
		current.RemoteID = &rid
		current.Origin = domain.OriginRemote
		current.UpdatedAt = e.now()

		if err := e.store.Records.UpsertByLocalID(current); err != nil {
			res.PushFailed++
			e.logger.Printf("push %s: store update failed: %v", id.Short(rec.LocalID), err)
			continue
		}
		res.Pushed++
	}
}

// apply merges snapshot into the current records under the store lock.
// Conflicts are written before the overwritten records so local content is
// never lost if the second write fails; in that case the new conflicts are
// withdrawn again so the queue only describes overwrites that happened.
func (e *Engine) apply(snapshot []domain.RemoteRecord, res *Result) error {
	now := e.now()
	var outcome MergeOutcome
	queued := false

	err := e.store.Records.Apply(func(current []domain.Record) ([]domain.Record, error) {
		outcome = Merge(current, snapshot, now, e.newID)
		if err := e.store.Conflicts.Append(outcome.Conflicts...); err != nil {
			return nil, err
		}
		queued = len(outcome.Conflicts) > 0
		return outcome.Records, nil
	})
	if err != nil {
		if queued {
			e.withdraw(outcome.Conflicts)
		}
		return err
	}

	if outcome.Duplicates > 0 {
		e.logger.Printf("snapshot repeated %d remote id(s); kept first occurrence", outcome.Duplicates)
	}
	res.Inserted = outcome.Inserted
	res.Confirmed = outcome.Confirmed
	res.Conflicts = outcome.Conflicted

	if err := e.store.Meta.SetLastSynced(now); err != nil {
		res.LastSyncUnsaved = true
		e.logger.Printf("failed to record last sync time: %v", err)
	}
	return nil
}

// withdraw removes conflicts queued by a merge whose records were not saved.
func (e *Engine) withdraw(conflicts []domain.Conflict) {
	ids := make([]string, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.ID
	}
	if _, err := e.store.Conflicts.RemoveAll(ids...); err != nil {
		e.logger.Printf("failed to withdraw %d conflict(s) after merge failure: %v", len(ids), err)
	}
}

func (e *Engine) finish(ctx context.Context, res *Result) *Result {
	res.FinishedAt = e.now()
	res.PendingConflicts = e.store.Conflicts.Len()
	res.Message = res.describe()

	if res.Err != nil {
		e.logger.Printf("%s sync %s: %v", res.Trigger, res.Status, res.Err)
	} else {
		e.logger.Printf("%s sync %s: pushed=%d push_failed=%d pulled=%d inserted=%d conflicts=%d",
			res.Trigger, res.Status, res.Pushed, res.PushFailed, res.Pulled, res.Inserted, res.Conflicts)
	}

	if e.history != nil {
		if _, err := e.history.Append(ctx, res.Event()); err != nil {
			e.logger.Printf("failed to record sync history: %v", err)
		}
	}
	e.observe(res)

	if res.Succeeded() {
		e.refresh(res.Conflicts)
	}
	e.notifier.NotifyStatus(res.Message)
	return res
}

func (e *Engine) observe(res *Result) {
	if e.observer != nil {
		e.observer.ObserveCycle(res)
	}
}

// refresh pushes the current view to the notifier.
func (e *Engine) refresh(conflictCount int) {
	refreshView(e.store, e.notifier, e.logger)
	e.notifier.NotifyConflictCount(conflictCount)
}

func refreshView(st *store.Store, n Notifier, logger *log.Logger) {
	category, err := st.Meta.SelectedCategory()
	if err != nil {
		logger.Printf("failed to read selected category: %v", err)
	}
	n.RenderRecords(st.Records.Filter(category))
	n.RenderConflicts(st.Conflicts.List())
}
