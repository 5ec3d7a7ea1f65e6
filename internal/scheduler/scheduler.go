package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"reservation-settlement-backend/internal/jobs"
	"reservation-settlement-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobs.JobRunner
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision. SkipIfStillRunning
	// keeps a slow sweep from overlapping with its next tick.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		jobs:   jobRunner,
		ctx:    ctx,
		cancel: cancel,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	// Expire pending negotiation requests past their deadline
	_, err := s.cron.AddFunc(cfg.ExpireStaleNegotiations, func() {
		s.jobs.ExpireStaleNegotiations(s.ctx)
	})
	if err != nil {
		logger.Error("Failed to register ExpireStaleNegotiations job", "error", err)
	}

	// Flag financing stages past their deadline
	_, err = s.cron.AddFunc(cfg.FlagOverdueFinancing, func() {
		s.jobs.FlagOverdueFinancingStages(s.ctx)
	})
	if err != nil {
		logger.Error("Failed to register FlagOverdueFinancingStages job", "error", err)
	}

	logger.Info("Cron jobs registered", "count", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, cancelling in-flight sweeps
// between items and waiting for them to return
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// NextRuns returns the next scheduled time of every registered entry
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}
