// Package scheduler runs sync cycles on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	qsync "github.com/lherron/quotesync/internal/sync"
)

// DefaultInterval is the period between scheduled cycles.
const DefaultInterval = 30 * time.Second

// Runner is the part of the engine the scheduler drives.
type Runner interface {
	Run(ctx context.Context, trigger qsync.Trigger) (*qsync.Result, error)
	Running() bool
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// InitialSync runs one cycle as soon as the scheduler starts.
	InitialSync bool
	Logger      *log.Logger
}

// Scheduler triggers cycles on a ticker. Ticks that arrive while a cycle is
// running are skipped by the engine, never queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	initial  bool
	logger   *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a stopped scheduler.
func New(runner Runner, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{
		runner:   runner,
		interval: opts.Interval,
		initial:  opts.InitialSync,
		logger:   opts.Logger,
	}
}

// Start begins ticking until ctx is done or Stop is called. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Printf("scheduler started (interval %s)", s.interval)
}

// Stop cancels the loop and waits for in-flight cycles, including ones
// started by TriggerNow, to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	if s.running {
		s.cancel()
		s.running = false
	}
	s.mu.Unlock()

	s.wg.Wait()
	if wasRunning {
		s.logger.Printf("scheduler stopped")
	}
}

// TriggerNow starts a manual cycle in the background. It returns false when
// the scheduler is not started or a cycle is already running. A cycle that
// starts between the check and the run is still caught by the engine and
// logged as skipped.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.runner.Running() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, qsync.TriggerManual)
	}()
	return true
}

// SyncNow runs a manual cycle and waits for it.
func (s *Scheduler) SyncNow(ctx context.Context) (*qsync.Result, error) {
	return s.runner.Run(ctx, qsync.TriggerManual)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.initial {
		s.run(ctx, qsync.TriggerScheduled)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, qsync.TriggerScheduled)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, trigger qsync.Trigger) {
	res, err := s.runner.Run(ctx, trigger)
	switch {
	case errors.Is(err, qsync.ErrCycleInProgress):
		s.logger.Printf("%s sync skipped: cycle in progress", trigger)
	case err != nil:
		s.logger.Printf("%s sync failed: %v", trigger, err)
	case res != nil:
		s.logger.Printf("%s sync %s", trigger, res.Status)
	}
}
