package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/platform/internal/domain"
)

type jobRunRepo struct{}

// NewJobRunRepository returns a sqlite-backed JobRunRepository.
func NewJobRunRepository() JobRunRepository {
	return &jobRunRepo{}
}

func (r *jobRunRepo) Insert(ctx context.Context, db DBTX, run *domain.JobRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = domain.JobRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, job_key, status, started_at, ended_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobName, run.JobKey, run.Status, fmtTime(run.StartedAt),
		fmtTimePtr(run.EndedAt), run.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert job run %s: %w", run.JobName, err)
	}
	return nil
}

func (r *jobRunRepo) MarkSuccess(ctx context.Context, db DBTX, id string, endedAt time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE job_runs SET status = 'success', ended_at = ?
		WHERE id = ? AND status = 'running'`, fmtTime(endedAt), id)
	if err != nil {
		return fmt.Errorf("mark job run success: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrConflict(fmt.Sprintf("job run %s is not running", id))
	}
	return nil
}

func (r *jobRunRepo) MarkFailed(ctx context.Context, db DBTX, id string, endedAt time.Time, msg string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE job_runs SET status = 'failed', ended_at = ?, error_message = ?
		WHERE id = ? AND status = 'running'`, fmtTime(endedAt), msg, id)
	if err != nil {
		return fmt.Errorf("mark job run failed: %w", err)
	}
	return nil
}

func (r *jobRunRepo) ShouldRunJobKey(ctx context.Context, db DBTX, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM job_runs
		WHERE job_key = ? AND status IN ('success', 'running')`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check job key %s: %w", key, err)
	}
	return n == 0, nil
}

func (r *jobRunRepo) FailRunning(ctx context.Context, db DBTX, msg string, endedAt time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE job_runs SET status = 'failed', ended_at = ?, error_message = ?
		WHERE status = 'running'`, fmtTime(endedAt), msg)
	if err != nil {
		return 0, fmt.Errorf("fail running job runs: %w", err)
	}
	return res.RowsAffected()
}
