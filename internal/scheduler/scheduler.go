// Package scheduler runs the periodic opportunistic sync.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one periodic unit of work. Its error is logged; the schedule
// keeps running.
type Job func(ctx context.Context) error

// Scheduler runs a job at a fixed interval, never overlapping runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	job       Job
	logger    *slog.Logger

	mu      sync.Mutex
	runs    int
	lastErr error
	cancel  context.CancelFunc
}

// New creates a scheduler for job. Each run is bounded by timeout when it
// is positive.
func New(interval, timeout time.Duration, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		timeout:   timeout,
		job:       job,
		logger:    logger,
	}
}

// Start schedules the job, running it once immediately, and returns
// without blocking. Runs stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run, ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("schedule job: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts the schedule and cancels a run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.scheduler.Stop()
}

// Runs returns how many runs finished and the last run's error.
func (s *Scheduler) Runs() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.job(ctx)
	if err != nil {
		s.logger.Warn("scheduled run failed", "error", err, "elapsed", time.Since(start).String())
	} else {
		s.logger.Debug("scheduled run finished", "elapsed", time.Since(start).String())
	}

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()
}
