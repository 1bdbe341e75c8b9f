// Package scheduler runs periodic maintenance jobs such as removing
// expired sessions and one-time codes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a named maintenance task. Run returns the number of rows it
// removed.
type Job struct {
	Name string
	Run  func() (int64, error)
}

// Scheduler runs every job on one cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	jobs     []Job

	mu      sync.Mutex
	running bool
}

// New creates a scheduler. An empty schedule disables it.
func New(schedule string, jobs ...Job) *Scheduler {
	return &Scheduler{cron: cron.New(), schedule: schedule, jobs: jobs}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		slog.Info("scheduler disabled")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true
	slog.Info("scheduler started", "schedule", s.schedule, "jobs", len(s.jobs))
	return nil
}

// Stop stops the cron loop and waits for a running pass to finish or
// for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	done := s.cron.Stop()
	s.running = false

	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out", "err", ctx.Err())
	}
}

// RunOnce runs every job now. A failing job does not stop the others.
func (s *Scheduler) RunOnce() {
	for _, j := range s.jobs {
		n, err := j.Run()
		if err != nil {
			slog.Error("scheduled job failed", "job", j.Name, "err", err)
			continue
		}
		if n > 0 {
			slog.Info("scheduled job finished", "job", j.Name, "removed", n)
		}
	}
}
