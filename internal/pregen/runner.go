package pregen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

// batchGenerator is the part of Engine a runner drives.
type batchGenerator interface {
	GenerateAll(ctx context.Context, combos []domain.Combination, force bool, hook TaskHook) domain.BatchRun
}

// Runner executes pregeneration jobs in a background goroutine of the API
// process. It is the queue used when no database backs the job table, and it
// runs at most one job at a time.
type Runner struct {
	ctx    context.Context
	engine batchGenerator
	log    *infra.Logger
	now    func() time.Time

	mu     sync.Mutex
	jobs   map[string]*domain.PregenJob
	active string
	wg     sync.WaitGroup
}

// NewRunner binds jobs to ctx; cancelling it interrupts the running batch.
func NewRunner(ctx context.Context, engine batchGenerator, logger *infra.Logger) *Runner {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Runner{
		ctx:    ctx,
		engine: engine,
		log:    logger,
		now:    time.Now,
		jobs:   make(map[string]*domain.PregenJob),
	}
}

// Enqueue starts a job, or returns domain.ErrDuplicateOperation while another
// job is running.
func (r *Runner) Enqueue(ctx context.Context, req domain.PregenRequest) (*domain.PregenJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		return nil, fmt.Errorf("job %s is running: %w", r.active, domain.ErrDuplicateOperation)
	}

	now := r.now().UTC()
	job := &domain.PregenJob{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    domain.JobStatusRunning,
		CreatedAt: now,
		StartedAt: &now,
	}
	r.jobs[job.ID] = job
	r.active = job.ID
	snapshot := *job

	r.wg.Add(1)
	go r.run(job.ID, req)
	return &snapshot, nil
}

func (r *Runner) run(id string, req domain.PregenRequest) {
	defer r.wg.Done()
	logger := r.log.With().Str("job_id", id).Logger()
	logger.Info().Bool("force", req.Force).Msg("runner: job started")

	result, err := r.generate(req)
	if err == nil {
		err = RunError(r.ctx, result)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	finished := r.now().UTC()
	job.FinishedAt = &finished
	job.Result = &result
	job.Status = domain.JobStatusSucceeded
	if err != nil {
		job.Status = domain.JobStatusFailed
		job.Error = err.Error()
	}
	r.active = ""
	logger.Info().
		Str("status", string(job.Status)).
		Int("newly_generated", result.NewlyGenerated).
		Int("failed", result.Failed).
		Msg("runner: job finished")
}

// generate reports a panic in the batch as an error.
func (r *Runner) generate(req domain.PregenRequest) (result domain.BatchRun, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("panic", fmt.Sprint(p)).Msg("runner: batch panicked")
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.engine.GenerateAll(r.ctx, req.Combinations(), req.Force, nil), nil
}

// RunError summarizes why a finished run counts as a failed job: the run was
// interrupted, or at least one combination failed.
func RunError(ctx context.Context, run domain.BatchRun) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	if run.Failed > 0 {
		return fmt.Errorf("%d of %d combinations failed", run.Failed, run.Attempted())
	}
	return nil
}

// Get returns a snapshot of the job.
func (r *Runner) Get(ctx context.Context, id string) (*domain.PregenJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Wait blocks until the running job, if any, returns.
func (r *Runner) Wait() {
	r.wg.Wait()
}

var _ domain.PregenJobQueue = (*Runner)(nil)
