package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reservation-settlement-backend/internal/config"
	"reservation-settlement-backend/internal/logger"
)

// Job names accepted by Run and the -run-once flag
const (
	JobExpireStaleNegotiations = "expire-stale-negotiations"
	JobFlagOverdueFinancing    = "flag-overdue-financing"
)

// NegotiationSweeper is the part of the negotiation service the expiry sweep needs
type NegotiationSweeper interface {
	ListExpiredNegotiationIDs(ctx context.Context) ([]int32, error)
	ExpireNegotiation(ctx context.Context, id int32) (bool, error)
}

// FinancingSweeper is the part of the financing service the overdue sweep needs
type FinancingSweeper interface {
	ListOverdueTrackerIDs(ctx context.Context) ([]int32, error)
	FlagOverdue(ctx context.Context, id int32) ([]int, error)
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Negotiation NegotiationSweeper
	Financing   FinancingSweeper
}

// Result summarizes one run of a sweep
type Result struct {
	Job        string    `json:"job"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Candidates int       `json:"candidates"`
	Changed    int       `json:"changed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config

	mu       sync.Mutex
	lastRuns map[string]Result
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		lastRuns: make(map[string]Result),
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Names lists the jobs the runner knows, sorted
func (jr *JobRunner) Names() []string {
	names := []string{JobExpireStaleNegotiations, JobFlagOverdueFinancing}
	sort.Strings(names)
	return names
}

// Run executes the named job once
func (jr *JobRunner) Run(ctx context.Context, name string) (Result, error) {
	switch name {
	case JobExpireStaleNegotiations:
		return jr.ExpireStaleNegotiations(ctx), nil
	case JobFlagOverdueFinancing:
		return jr.FlagOverdueFinancingStages(ctx), nil
	default:
		return Result{}, fmt.Errorf("unknown job: %s", name)
	}
}

// RunAll runs every sweep in sequence (for manual execution)
func (jr *JobRunner) RunAll(ctx context.Context) []Result {
	return []Result{
		jr.ExpireStaleNegotiations(ctx),
		jr.FlagOverdueFinancingStages(ctx),
	}
}

// LastRuns returns the most recent result of each job that has run
func (jr *JobRunner) LastRuns() map[string]Result {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	out := make(map[string]Result, len(jr.lastRuns))
	for k, v := range jr.lastRuns {
		out[k] = v
	}
	return out
}

// runWithRecovery wraps job execution with panic recovery and records the result
func (jr *JobRunner) runWithRecovery(ctx context.Context, jobName string, jobFunc func(ctx context.Context, res *Result)) (res Result) {
	res = Result{
		Job:       jobName,
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := logger.WithJob(jobName, res.RunID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.FinishedAt = time.Now().UTC()

		jr.mu.Lock()
		jr.lastRuns[jobName] = res
		jr.mu.Unlock()
	}()

	log.Info("Starting job")
	jobFunc(ctx, &res)
	log.Info("Job completed",
		"candidates", res.Candidates,
		"changed", res.Changed,
		"skipped", res.Skipped,
		"failed", res.Failed)
	return res
}
