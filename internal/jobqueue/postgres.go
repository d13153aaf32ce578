package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/sqlinline"
)

// ErrNoJob is returned by Claim when nothing is queued.
var ErrNoJob = errors.New("no job available")

// Postgres stores pregeneration jobs in the pregen_jobs table. Claims use
// FOR UPDATE SKIP LOCKED so several workers may poll the same table.
type Postgres struct {
	db infra.SQLExecutor
}

func NewPostgres(db infra.SQLExecutor) *Postgres {
	return &Postgres{db: db}
}

// Enqueue inserts a QUEUED job.
func (q *Postgres) Enqueue(ctx context.Context, req domain.PregenRequest) (*domain.PregenJob, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	job := &domain.PregenJob{
		ID:      uuid.NewString(),
		Request: req,
		Status:  domain.JobStatusQueued,
	}
	if err := q.db.QueryRow(ctx, sqlinline.QInsertPregenJob, job.ID, payload).Scan(&job.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert pregen job: %w", err)
	}
	return job, nil
}

func (q *Postgres) Get(ctx context.Context, id string) (*domain.PregenJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		job     domain.PregenJob
		status  string
		request []byte
		result  []byte
	)
	err := q.db.QueryRow(ctx, sqlinline.QSelectPregenJob, id).Scan(
		&job.ID,
		&status,
		&request,
		&result,
		&job.Error,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select pregen job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	if err := decodeRequest(request, &job.Request); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		var run domain.BatchRun
		if err := json.Unmarshal(result, &run); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
		job.Result = &run
	}
	return &job, nil
}

// Claim moves the oldest QUEUED job to RUNNING and returns it, or ErrNoJob.
func (q *Postgres) Claim(ctx context.Context) (*domain.PregenJob, error) {
	var (
		job     domain.PregenJob
		request []byte
	)
	err := q.db.QueryRow(ctx, sqlinline.QClaimPregenJob).Scan(&job.ID, &request, &job.CreatedAt, &job.StartedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("claim pregen job: %w", err)
	}
	job.Status = domain.JobStatusRunning
	if err := decodeRequest(request, &job.Request); err != nil {
		return nil, err
	}
	return &job, nil
}

// Finish records the outcome. A non-nil jobErr marks the job FAILED.
func (q *Postgres) Finish(ctx context.Context, id string, run *domain.BatchRun, jobErr error) error {
	status := domain.JobStatusSucceeded
	var msg string
	if jobErr != nil {
		status = domain.JobStatusFailed
		msg = jobErr.Error()
	}
	var result []byte
	if run != nil {
		encoded, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("encode job result: %w", err)
		}
		result = encoded
	}
	if _, err := q.db.Exec(ctx, sqlinline.QFinishPregenJob, id, string(status), result, msg); err != nil {
		return fmt.Errorf("finish pregen job: %w", err)
	}
	return nil
}

// RequeueStale returns RUNNING jobs older than maxAge to the queue, which
// recovers jobs whose worker died mid-run.
func (q *Postgres) RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, sqlinline.QRequeueStalePregenJobs, int(maxAge.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func decodeRequest(raw []byte, dst *domain.PregenRequest) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode job request: %w", err)
	}
	return nil
}

var _ domain.PregenJobQueue = (*Postgres)(nil)
