package job

import (
	"context"
	"log/slog"

	"github.com/cardline/platform/internal/repository"
)

// Settler is the settlement engine surface.
type Settler interface {
	GradeGames(ctx context.Context) (graded, cancelled int, err error)
	GradeCards(ctx context.Context) (settled int, err error)
}

// SettleJob runs both settlement phases once per hourly window.
type SettleJob struct {
	store   Store
	jobRuns repository.JobRunRepository
	settler Settler
	logger  *slog.Logger
}

func NewSettleJob(store Store, jobRuns repository.JobRunRepository, settler Settler, logger *slog.Logger) *SettleJob {
	return &SettleJob{store: store, jobRuns: jobRuns, settler: settler, logger: logger}
}

func (j *SettleJob) Name() string { return "settle_results" }

func (j *SettleJob) Run(ctx context.Context, opts Options) (*Result, error) {
	return execute(ctx, j.store, j.jobRuns, j.logger, j.Name(), opts, j.body)
}

func (j *SettleJob) body(ctx context.Context, _ string) (map[string]int, error) {
	graded, cancelled, err := j.settler.GradeGames(ctx)
	counts := map[string]int{"games_graded": graded, "games_cancelled": cancelled}
	if err != nil {
		return counts, err
	}

	settled, err := j.settler.GradeCards(ctx)
	counts["cards_settled"] = settled
	return counts, err
}
