package jobqueue

import (
	"context"
	"errors"
	"time"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/pregen"
)

const (
	DefaultPollInterval = 2 * time.Second
	// StaleAfter is how long a RUNNING job may go without finishing before it
	// is handed to another worker. A full 32-combination run with every
	// retry exhausted stays well inside it.
	StaleAfter = 2 * time.Hour
)

type claimer interface {
	Claim(ctx context.Context) (*domain.PregenJob, error)
	Finish(ctx context.Context, id string, run *domain.BatchRun, jobErr error) error
	RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

type batchGenerator interface {
	GenerateAll(ctx context.Context, combos []domain.Combination, force bool, hook pregen.TaskHook) domain.BatchRun
}

// Worker polls the queue and runs one job at a time.
type Worker struct {
	queue  claimer
	engine batchGenerator
	poll   time.Duration
	log    *infra.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewWorker(queue claimer, engine batchGenerator, poll time.Duration, logger *infra.Logger) *Worker {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Worker{queue: queue, engine: engine, poll: poll, log: logger, sleep: sleepContext}
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("poll", w.poll).Msg("worker: started")
	if n, err := w.queue.RequeueStale(ctx, StaleAfter); err != nil {
		w.log.Warn().Err(err).Msg("worker: requeue stale jobs failed")
	} else if n > 0 {
		w.log.Info().Int64("requeued", n).Msg("worker: requeued stale jobs")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled, err := w.RunOnce(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("worker: failed to claim job")
		}
		if handled {
			continue
		}
		if err := w.sleep(ctx, w.poll); err != nil {
			return err
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job was
// handled.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.queue.Claim(ctx)
	if err != nil {
		if errors.Is(err, ErrNoJob) {
			return false, nil
		}
		return false, err
	}

	logger := w.log.With().Str("job_id", job.ID).Logger()
	logger.Info().
		Bool("force", job.Request.Force).
		Str("portrait_id", string(job.Request.PortraitID)).
		Str("build_type", string(job.Request.BuildType)).
		Msg("worker: picked job")

	run := w.engine.GenerateAll(ctx, job.Request.Combinations(), job.Request.Force, nil)
	jobErr := pregen.RunError(ctx, run)

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), infra.StoreTimeout)
	defer cancel()
	if err := w.queue.Finish(finishCtx, job.ID, &run, jobErr); err != nil {
		logger.Error().Err(err).Msg("worker: update status failed")
	}
	logger.Info().
		Int("newly_generated", run.NewlyGenerated).
		Int("failed", run.Failed).
		Float64("success_rate", run.SuccessRate()).
		Msg("worker: job finished")
	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
