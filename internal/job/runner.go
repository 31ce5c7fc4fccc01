package job

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/repository"
)

// Store is the slice of the sqlite store the job layer uses. Reads go
// through DB; every write happens inside WriteTx.
type Store interface {
	DB() *sql.DB
	WriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Options parameterize one job dispatch.
type Options struct {
	// JobKey is the deterministic window key; empty disables the
	// idempotency gate (manual runs).
	JobKey string
	DryRun bool
}

// Result reports one job dispatch.
type Result struct {
	JobRunID string
	Success  bool
	Skipped  bool
	DryRun   bool
	Counts   map[string]int
}

// Runner is one schedulable job.
type Runner interface {
	Name() string
	Run(ctx context.Context, opts Options) (*Result, error)
}

// execute wraps a job body with the run-row lifecycle: idempotency
// gate, running insert, body, terminal success/failed transition. A
// cancelled context still produces a terminal failed row.
func execute(
	ctx context.Context,
	store Store,
	jobRuns repository.JobRunRepository,
	logger *slog.Logger,
	name string,
	opts Options,
	body func(ctx context.Context, jobRunID string) (map[string]int, error),
) (*Result, error) {
	if opts.JobKey != "" {
		ok, err := jobRuns.ShouldRunJobKey(ctx, store.DB(), opts.JobKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("job window already satisfied", "job", name, "job_key", opts.JobKey)
			return &Result{Skipped: true}, nil
		}
	}

	if opts.DryRun {
		logger.Info("dry run, job would execute", "job", name, "job_key", opts.JobKey)
		return &Result{DryRun: true, Success: true}, nil
	}

	run := &domain.JobRun{
		ID:        uuid.NewString(),
		JobName:   name,
		Status:    domain.JobRunning,
		StartedAt: time.Now().UTC(),
	}
	if opts.JobKey != "" {
		key := opts.JobKey
		run.JobKey = &key
	}
	if err := store.WriteTx(ctx, func(tx *sql.Tx) error {
		return jobRuns.Insert(ctx, tx, run)
	}); err != nil {
		return nil, err
	}

	logger.Info("job started", "job", name, "job_key", opts.JobKey, "job_run_id", run.ID)
	counts, bodyErr := body(ctx, run.ID)

	// Terminal transitions use a detached context so shutdown still
	// leaves a terminal row behind.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	endedAt := time.Now().UTC()

	if bodyErr != nil {
		msg := bodyErr.Error()
		if errors.Is(bodyErr, context.Canceled) {
			msg = "cancelled"
		}
		if err := store.WriteTx(finCtx, func(tx *sql.Tx) error {
			return jobRuns.MarkFailed(finCtx, tx, run.ID, endedAt, msg)
		}); err != nil {
			logger.Error("failed to mark job run failed", "job", name, "job_run_id", run.ID, "error", err)
		}
		logger.Error("job failed", "job", name, "job_run_id", run.ID, "error", bodyErr)
		return &Result{JobRunID: run.ID, Counts: counts}, bodyErr
	}

	if err := store.WriteTx(finCtx, func(tx *sql.Tx) error {
		return jobRuns.MarkSuccess(finCtx, tx, run.ID, endedAt)
	}); err != nil {
		logger.Error("failed to mark job run success", "job", name, "job_run_id", run.ID, "error", err)
	}
	logger.Info("job finished", "job", name, "job_run_id", run.ID, "counts", counts)
	return &Result{JobRunID: run.ID, Success: true, Counts: counts}, nil
}
