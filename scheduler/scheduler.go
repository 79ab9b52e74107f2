package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context)

// Scheduler repeats a job on a fixed interval
type Scheduler struct {
	interval time.Duration
	job      Job
	log      *zap.Logger
}

// NewScheduler creates a new scheduler. A zero interval runs the job once.
func NewScheduler(interval time.Duration, job Job, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.L()
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		log:      log,
	}
}

// Run executes the job immediately and then on every tick until ctx is
// done. Runs never overlap. It returns how many times the job ran.
func (s *Scheduler) Run(ctx context.Context) int {
	runs := 0
	if ctx.Err() != nil {
		return runs
	}

	s.job(ctx)
	runs++
	if s.interval <= 0 {
		return runs
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped", zap.Int("runs", runs))
			return runs
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			s.job(ctx)
			runs++
		}
	}
}
