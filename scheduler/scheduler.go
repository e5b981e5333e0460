// Package scheduler reruns the forecasting pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sartorproj/skuforecast/logger"
)

// Job is one pipeline run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a standard five-field cron schedule in UTC. A run
// that is still going when the next one is due causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	job    Job
	entry  cron.EntryID
	log    *logger.Entry
}

// New creates a scheduler for job. Stop cancels the context passed to job.
func New(job Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	log := logger.GetLogger().WithComponent("scheduler")

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		ctx:    ctx,
		cancel: cancel,
		job:    job,
		log:    log,
	}
}

// Register schedules the job at spec, e.g. "0 6 * * 1" for Mondays 06:00 UTC.
func (s *Scheduler) Register(spec string) error {
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("register forecast job %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("next_run", s.Next()).Info("scheduler started")
}

// Stop waits for a running job to finish and cancels the job context.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	s.cancel()
	s.log.Info("scheduler stopped")
}

// RunNow runs the job immediately on the caller's goroutine.
func (s *Scheduler) RunNow() error {
	return s.job(s.ctx)
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run() {
	start := time.Now()
	if err := s.job(s.ctx); err != nil {
		s.log.WithError(err).Error("scheduled forecast failed")
		return
	}
	logger.LogDuration(s.log, "scheduled_forecast", time.Since(start), nil)
}
