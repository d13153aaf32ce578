package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"scenegen/internal/domain"
	"scenegen/internal/sqlinline"
)

type stubExecutor struct {
	row     stubRow
	tag     pgconn.CommandTag
	queries []string
	args    []any
	err     error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.args = args
	return s.tag, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.args = args
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			if r.values[i] != nil {
				*p = r.values[i].([]byte)
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			if r.values[i] != nil {
				v := r.values[i].(time.Time)
				*p = &v
			}
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestEnqueue(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: stubRow{values: []any{created}}}
	q := NewPostgres(exec)

	job, err := q.Enqueue(context.Background(), domain.PregenRequest{Force: true, BuildType: domain.BuildMage})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	if exec.queries[0] != sqlinline.QInsertPregenJob {
		t.Fatalf("unexpected query")
	}
	if job.Status != domain.JobStatusQueued || !job.CreatedAt.Equal(created) {
		t.Fatalf("job = %+v", job)
	}
	var req domain.PregenRequest
	if err := json.Unmarshal(exec.args[1].([]byte), &req); err != nil {
		t.Fatalf("request payload: %v", err)
	}
	if !req.Force || req.BuildType != domain.BuildMage || req.PortraitID != "" {
		t.Fatalf("request payload = %+v", req)
	}
}

func TestGet(t *testing.T) {
	id := "4b0c3f2a-8d51-4a8e-9d7e-2f1c6b3a9e10"
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	result, _ := json.Marshal(domain.BatchRun{Total: 4, NewlyGenerated: 3, Failed: 1})
	exec := &stubExecutor{row: stubRow{values: []any{
		id, "SUCCEEDED", []byte(`{"force":false,"portrait_id":"f3"}`), result, "",
		created, created.Add(time.Second), created.Add(time.Minute),
	}}}

	job, err := NewPostgres(exec).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded || job.Request.PortraitID != domain.PortraitF3 {
		t.Fatalf("job = %+v", job)
	}
	if job.Result == nil || job.Result.NewlyGenerated != 3 || job.Result.Failed != 1 {
		t.Fatalf("result = %+v", job.Result)
	}
	if job.FinishedAt == nil || !job.FinishedAt.Equal(created.Add(time.Minute)) {
		t.Fatalf("FinishedAt = %v", job.FinishedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	exec := &stubExecutor{row: stubRow{err: pgx.ErrNoRows}}
	q := NewPostgres(exec)
	if _, err := q.Get(context.Background(), "4b0c3f2a-8d51-4a8e-9d7e-2f1c6b3a9e10"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
	exec.queries = nil
	if _, err := q.Get(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(bad id) error = %v, want ErrNotFound", err)
	}
	if len(exec.queries) != 0 {
		t.Fatalf("malformed id should not reach the database")
	}
}

func TestClaimEmptyQueue(t *testing.T) {
	q := NewPostgres(&stubExecutor{row: stubRow{err: pgx.ErrNoRows}})
	if _, err := q.Claim(context.Background()); !errors.Is(err, ErrNoJob) {
		t.Fatalf("Claim error = %v, want ErrNoJob", err)
	}
}

func TestFinishArgs(t *testing.T) {
	exec := &stubExecutor{}
	q := NewPostgres(exec)

	if err := q.Finish(context.Background(), "id-1", &domain.BatchRun{Total: 1}, errors.New("context canceled")); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if exec.queries[0] != sqlinline.QFinishPregenJob {
		t.Fatalf("unexpected query")
	}
	if exec.args[1] != "FAILED" || exec.args[3] != "context canceled" {
		t.Fatalf("args = %v", exec.args)
	}

	if err := q.Finish(context.Background(), "id-2", nil, nil); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if exec.args[1] != "SUCCEEDED" || exec.args[2].([]byte) != nil || exec.args[3] != "" {
		t.Fatalf("args = %v", exec.args)
	}
}
