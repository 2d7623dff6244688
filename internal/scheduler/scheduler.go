// Package scheduler runs the calendar sync for the default listing on a
// cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukerupert/hostcal/internal/reconcile"
)

// runTimeout bounds one scheduled sync, fetch included.
const runTimeout = 2 * time.Minute

type Syncer interface {
	Sync(ctx context.Context, listingID int64) (reconcile.Result, error)
}

type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	syncer    Syncer
	listingID int64
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New validates spec (standard five-field cron, or descriptors such as
// "@every 15m") and prepares a scheduler that is not yet running.
func New(spec string, listingID int64, s Syncer, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	sch := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		syncer:    s,
		listingID: listingID,
		logger:    logger,
	}
	if _, err := sch.cron.AddFunc(spec, sch.run); err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", spec, err)
	}
	return sch, nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("sync scheduler started", "listing_id", s.listingID, "next", s.Next())
}

// Stop cancels any sync in flight and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
}

// Next is when the sync will next fire, or zero when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	s.RunOnce(parent)
}

// RunOnce performs one sync with the scheduler's timeout. The syncer
// records and logs the outcome; RunOnce only adds the trigger.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	s.logger.Debug("scheduled sync", "listing_id", s.listingID)
	if _, err := s.syncer.Sync(ctx, s.listingID); err != nil {
		s.logger.Warn("scheduled sync failed", "listing_id", s.listingID, "error", err)
	}
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
