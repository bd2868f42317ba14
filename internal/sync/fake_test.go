package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/kv"
)

var errOffline = errors.New("offline")

// fakeGateway is an in-memory remote. Items listed in failCreate reject
// pushes whose text matches.
type fakeGateway struct {
	mu         stdsync.Mutex
	snapshot   []domain.RemoteRecord
	pullErr    error
	nextID     int64
	failCreate map[string]bool
	created    []string
	fetches    int

	// block, when set, is waited on inside FetchSnapshot.
	block chan struct{}
}

func (g *fakeGateway) FetchSnapshot(ctx context.Context, limit int) ([]domain.RemoteRecord, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.pullErr != nil {
		return nil, &domain.TransportError{Op: "fetch", URL: "fake", Err: g.pullErr}
	}
	out := append([]domain.RemoteRecord(nil), g.snapshot...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *fakeGateway) Create(ctx context.Context, text, category string) (domain.RemoteRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate[text] {
		return domain.RemoteRecord{}, &domain.TransportError{Op: "create", URL: "fake", Err: errOffline}
	}
	g.nextID++
	g.created = append(g.created, text)
	return domain.RemoteRecord{RemoteID: g.nextID, Text: text, Category: category, FetchedAt: time.Now()}, nil
}

// recordingNotifier captures the last notification of each kind.
type recordingNotifier struct {
	records       []domain.Record
	conflicts     []domain.Conflict
	statuses      []string
	conflictCount int
	countCalls    int
}

func (n *recordingNotifier) RenderRecords(r []domain.Record)     { n.records = r }
func (n *recordingNotifier) RenderConflicts(c []domain.Conflict) { n.conflicts = c }
func (n *recordingNotifier) NotifyStatus(s string)               { n.statuses = append(n.statuses, s) }
func (n *recordingNotifier) NotifyConflictCount(c int) {
	n.conflictCount = c
	n.countCalls++
}

type memHistory struct {
	events []domain.SyncEvent
}

func (h *memHistory) Append(ctx context.Context, ev domain.SyncEvent) (int64, error) {
	h.events = append(h.events, ev)
	return int64(len(h.events)), nil
}

var errDiskFull = errors.New("disk full")

// flakyKV wraps a kv store and fails the next failPuts writes to one key.
type flakyKV struct {
	kv.Store
	key      string
	failPuts int
}

func (f *flakyKV) Put(key string, value []byte) error {
	if key == f.key && f.failPuts > 0 {
		f.failPuts--
		return errDiskFull
	}
	return f.Store.Put(key, value)
}
