package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cardline/platform/internal/card"
	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/driver"
	"github.com/cardline/platform/internal/enrich"
	"github.com/cardline/platform/internal/repository"
)

const (
	upcomingHorizonHours = 36
	gameConcurrency      = 4
)

// TeamEnricher is the enrichment surface the model job depends on.
type TeamEnricher interface {
	Enrich(ctx context.Context, teamName string, sport domain.Sport) enrich.TeamMetrics
}

// CardWriter is the single card write path.
type CardWriter interface {
	Write(ctx context.Context, req card.WriteRequest) (bool, error)
}

// SportModelJob runs one sport's drivers over the upcoming slate and
// hands each surviving descriptor to the card writer.
type SportModelJob struct {
	store    Store
	games    repository.GameRepository
	odds     repository.OddsRepository
	jobRuns  repository.JobRunRepository
	enricher TeamEnricher
	writer   CardWriter
	module   driver.Module
	logger   *slog.Logger
}

func NewSportModelJob(
	store Store,
	games repository.GameRepository,
	odds repository.OddsRepository,
	jobRuns repository.JobRunRepository,
	enricher TeamEnricher,
	writer CardWriter,
	module driver.Module,
	logger *slog.Logger,
) *SportModelJob {
	return &SportModelJob{
		store: store, games: games, odds: odds, jobRuns: jobRuns,
		enricher: enricher, writer: writer, module: module, logger: logger,
	}
}

func (j *SportModelJob) Name() string {
	return fmt.Sprintf("run_%s_model", j.module.Sport())
}

func (j *SportModelJob) Run(ctx context.Context, opts Options) (*Result, error) {
	return execute(ctx, j.store, j.jobRuns, j.logger, j.Name(), opts,
		func(ctx context.Context, jobRunID string) (map[string]int, error) {
			return j.body(ctx, jobRunID, opts.JobKey)
		})
}

func (j *SportModelJob) body(ctx context.Context, jobRunID, windowKey string) (map[string]int, error) {
	sport := j.module.Sport()
	now := time.Now().UTC()
	games, err := j.games.ListUpcoming(ctx, j.store.DB(),
		[]domain.Sport{sport}, now, now.Add(upcomingHorizonHours*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list upcoming %s games: %w", sport, err)
	}

	counts := map[string]int{"games": len(games), "cards": 0, "game_errors": 0}
	if len(games) == 0 {
		j.logger.Info("no upcoming games", "sport", sport)
		return counts, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gameConcurrency)

	for _, game := range games {
		game := game
		g.Go(func() error {
			written, err := j.processGame(gctx, game, jobRunID, windowKey)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-game failures never fail the job.
				counts["game_errors"]++
				j.logger.Error("game processing failed", "sport", sport, "game_id", game.ID, "error", err)
				return nil
			}
			counts["cards"] += written
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, ctx.Err()
}

func (j *SportModelJob) processGame(ctx context.Context, game domain.Game, jobRunID, windowKey string) (int, error) {
	snap, err := j.odds.LatestByGame(ctx, j.store.DB(), game.ID)
	if err != nil {
		return 0, fmt.Errorf("latest snapshot: %w", err)
	}

	in := driver.Input{
		Game:     game,
		Snapshot: snap,
		Home:     j.enricher.Enrich(ctx, game.HomeTeam, game.Sport),
		Away:     j.enricher.Enrich(ctx, game.AwayTeam, game.Sport),
		Now:      time.Now().UTC(),
	}

	descriptors := dedupeDescriptors(j.module.ComputeDrivers(in))
	written := 0
	for _, desc := range descriptors {
		created, err := j.writer.Write(ctx, card.WriteRequest{
			Game:         game,
			Snapshot:     snap,
			Descriptor:   desc,
			ModelVersion: j.module.ModelVersion(),
			WindowKey:    windowKey,
			JobRunID:     jobRunID,
		})
		if err != nil {
			return written, fmt.Errorf("write %s card: %w", desc.CardType, err)
		}
		if created {
			written++
		}
	}
	return written, nil
}

// dedupeDescriptors keeps the highest-confidence descriptor per card
// type, preserving first-seen order of the survivors.
func dedupeDescriptors(descs []domain.DriverDescriptor) []domain.DriverDescriptor {
	best := make(map[string]int, len(descs))
	var order []string
	for i, d := range descs {
		prev, seen := best[d.CardType]
		if !seen {
			best[d.CardType] = i
			order = append(order, d.CardType)
			continue
		}
		if d.Confidence > descs[prev].Confidence {
			best[d.CardType] = i
		}
	}
	out := make([]domain.DriverDescriptor, 0, len(order))
	for _, ct := range order {
		out = append(out, descs[best[ct]])
	}
	return out
}
