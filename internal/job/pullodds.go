package job

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/provider"
	"github.com/cardline/platform/internal/repository"
)

const (
	oddsFetchHorizonHours = 48
	snapshotRetention     = 2 * time.Hour
)

// OddsFetcher is the provider surface the odds job depends on.
type OddsFetcher interface {
	FetchOdds(ctx context.Context, sport domain.Sport, horizonHours int) (*provider.FetchResult, error)
}

// PullOddsJob refreshes games and odds snapshots for every enabled
// sport, one bookmaker pull per sport per hourly window.
type PullOddsJob struct {
	store   Store
	games   repository.GameRepository
	odds    repository.OddsRepository
	jobRuns repository.JobRunRepository
	fetcher OddsFetcher
	sports  []domain.Sport
	logger  *slog.Logger
}

func NewPullOddsJob(
	store Store,
	games repository.GameRepository,
	odds repository.OddsRepository,
	jobRuns repository.JobRunRepository,
	fetcher OddsFetcher,
	sports []domain.Sport,
	logger *slog.Logger,
) *PullOddsJob {
	return &PullOddsJob{
		store: store, games: games, odds: odds, jobRuns: jobRuns,
		fetcher: fetcher, sports: sports, logger: logger,
	}
}

func (j *PullOddsJob) Name() string { return "pull_odds_hourly" }

func (j *PullOddsJob) Run(ctx context.Context, opts Options) (*Result, error) {
	return execute(ctx, j.store, j.jobRuns, j.logger, j.Name(), opts, j.body)
}

// body fetches each sport independently; the job fails only when every
// sport fails.
func (j *PullOddsJob) body(ctx context.Context, jobRunID string) (map[string]int, error) {
	counts := map[string]int{"games": 0, "snapshots": 0, "sports_failed": 0}
	var lastErr error

	for _, sport := range j.sports {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		res, err := j.fetcher.FetchOdds(ctx, sport, oddsFetchHorizonHours)
		if err != nil {
			counts["sports_failed"]++
			lastErr = err
			j.logger.Error("odds fetch failed", "sport", sport, "error", err)
			continue
		}
		j.logger.Info("odds fetched", "sport", sport,
			"raw", res.RawCount, "kept", len(res.Games), "skipped", res.SkippedMissingFields)

		if err := j.persist(ctx, sport, jobRunID, res.Games); err != nil {
			counts["sports_failed"]++
			lastErr = err
			j.logger.Error("odds persist failed", "sport", sport, "error", err)
			continue
		}
		counts["games"] += len(res.Games)
		counts["snapshots"] += len(res.Games)
	}

	if len(j.sports) > 0 && counts["sports_failed"] == len(j.sports) {
		return counts, fmt.Errorf("all %d sports failed: %w", len(j.sports), lastErr)
	}

	pruned, err := j.prune(ctx)
	if err != nil {
		j.logger.Warn("snapshot prune failed", "error", err)
	} else if pruned > 0 {
		j.logger.Info("old snapshots pruned", "count", pruned)
	}
	return counts, nil
}

func (j *PullOddsJob) persist(ctx context.Context, sport domain.Sport, jobRunID string, games []provider.CanonicalGame) error {
	return j.store.WriteTx(ctx, func(tx *sql.Tx) error {
		for _, cg := range games {
			game := &domain.Game{
				ID:             domain.GameID(sport, cg.GameID),
				Sport:          sport,
				ProviderGameID: cg.GameID,
				HomeTeam:       cg.HomeTeam,
				AwayTeam:       cg.AwayTeam,
				GameTimeUTC:    cg.GameTimeUTC,
				Status:         domain.GameScheduled,
			}
			if err := j.games.Upsert(ctx, tx, game); err != nil {
				return err
			}
			snap := &domain.OddsSnapshot{
				GameID:        game.ID,
				CapturedAt:    cg.CapturedAtUTC,
				MoneylineHome: cg.MoneylineHome,
				MoneylineAway: cg.MoneylineAway,
				Total:         cg.Total,
				SpreadHome:    cg.SpreadHome,
				SpreadAway:    cg.SpreadAway,
				Raw:           cg.Raw,
				JobRunID:      jobRunID,
			}
			if err := j.odds.InsertSnapshot(ctx, tx, snap); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *PullOddsJob) prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-snapshotRetention)
	var pruned int64
	err := j.store.WriteTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		pruned, txErr = j.odds.PruneBefore(ctx, tx, cutoff)
		return txErr
	})
	return pruned, err
}
