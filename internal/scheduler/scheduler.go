// Package scheduler triggers ingestion cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is one schedulable unit of work.
type Job interface {
	Update(ctx context.Context) error
}

// Scheduler runs a Job once at startup and then on a recurring cron
// schedule. Six-field expressions with a seconds column are accepted, e.g.
// "0 15 * * * *" for minute 15 of every hour. A tick that arrives while the
// previous run is still in flight is skipped, never queued.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	logger *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	baseCtx context.Context
}

// New creates a stopped scheduler for the given job.
func New(job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		job:    job,
		logger: logger,
	}
}

// Start runs the job once immediately, installs the cron entry, and starts
// ticking. The context bounds every job invocation; cancelling it makes
// subsequent runs fail fast, after which the caller should Stop.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.run()

	if err := s.install(spec); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Reschedule replaces the cron entry with a new expression. The pending
// invocation is cancelled; an in-flight run is left to complete.
func (s *Scheduler) Reschedule(spec string) error {
	return s.install(spec)
}

// Stop cancels future invocations and returns once any in-flight run has
// completed.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) install(spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		// Retry as a six-field expression with seconds.
		schedule, err = cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		).Parse(spec)
		if err != nil {
			return fmt.Errorf("parse cron spec %q: %w", spec, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = s.cron.Schedule(schedule, s.singleFlight())
	s.logger.Info("ingestion scheduled", "spec", spec)
	return nil
}

// singleFlight wraps the job so overlapping ticks are dropped.
func (s *Scheduler) singleFlight() cron.Job {
	return cron.NewChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	).Then(cron.FuncJob(s.run))
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.job.Update(ctx); err != nil {
		s.logger.Error("scheduled ingestion failed", "error", err)
	}
}
