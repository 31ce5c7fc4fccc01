package settle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/provider"
	"github.com/cardline/platform/internal/repository"
)

const scoreboardDaysFrom = 3

// Store is the slice of the sqlite store the grader uses.
type Store interface {
	DB() *sql.DB
	WriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// ScoreFetcher is the scoreboard surface of the odds provider.
type ScoreFetcher interface {
	FetchScores(ctx context.Context, sport domain.Sport, daysFrom int) ([]provider.EventScore, error)
}

// Grader runs the two settlement phases: game grading writes final
// scores, card grading settles the pending ledger against them.
type Grader struct {
	store    Store
	games    repository.GameRepository
	results  repository.ResultRepository
	tracking repository.TrackingRepository
	scores   ScoreFetcher

	minHoursAfterStart int
	voidAfterHours     int
	logger             *slog.Logger
}

func NewGrader(
	store Store,
	games repository.GameRepository,
	results repository.ResultRepository,
	tracking repository.TrackingRepository,
	scores ScoreFetcher,
	minHoursAfterStart, voidAfterHours int,
	logger *slog.Logger,
) *Grader {
	return &Grader{
		store: store, games: games, results: results, tracking: tracking, scores: scores,
		minHoursAfterStart: minHoursAfterStart, voidAfterHours: voidAfterHours, logger: logger,
	}
}

// GradeGames resolves final scores for games old enough to have ended.
// Games the scoreboard no longer carries are voided once they age past
// the unresolvable cutoff. Returns (graded, cancelled).
func (g *Grader) GradeGames(ctx context.Context) (int, int, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(g.minHoursAfterStart) * time.Hour)
	ungraded, err := g.games.UngradedStartedBefore(ctx, g.store.DB(), cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("list ungraded games: %w", err)
	}
	if len(ungraded) == 0 {
		return 0, 0, nil
	}

	bySport := make(map[domain.Sport][]domain.Game)
	for _, game := range ungraded {
		bySport[game.Sport] = append(bySport[game.Sport], game)
	}

	graded, cancelled := 0, 0
	voidCutoff := now.Add(-time.Duration(g.voidAfterHours) * time.Hour)

	for sport, games := range bySport {
		scoreboard, err := g.scores.FetchScores(ctx, sport, scoreboardDaysFrom)
		if err != nil {
			// Other sports still grade; these games stay unresolved.
			g.logger.Error("scoreboard fetch failed", "sport", sport, "error", err)
			continue
		}
		byEvent := make(map[string]provider.EventScore, len(scoreboard))
		for _, ev := range scoreboard {
			byEvent[ev.ID] = ev
		}

		for _, game := range games {
			ev, found := byEvent[game.ProviderGameID]
			switch {
			case found && ev.Completed:
				home, away, ok := ev.FinalScores()
				if !ok {
					g.logger.Warn("completed event missing scores", "game_id", game.ID)
					continue
				}
				if err := g.writeResult(ctx, &domain.GameResult{
					GameID: game.ID, HomeScore: home, AwayScore: away,
					Status: domain.GameResultFinal, FinalAt: now,
				}); err != nil {
					return graded, cancelled, err
				}
				graded++
			case game.GameTimeUTC.Before(voidCutoff):
				// Unresolvable: postponed or cancelled upstream.
				if err := g.writeResult(ctx, &domain.GameResult{
					GameID: game.ID, Status: domain.GameResultCancelled, FinalAt: now,
				}); err != nil {
					return graded, cancelled, err
				}
				cancelled++
				g.logger.Info("game voided as unresolvable", "game_id", game.ID)
			}
		}
	}
	return graded, cancelled, nil
}

func (g *Grader) writeResult(ctx context.Context, res *domain.GameResult) error {
	return g.store.WriteTx(ctx, func(tx *sql.Tx) error {
		return g.results.UpsertGameResult(ctx, tx, res)
	})
}

// GradeCards settles every pending ledger row whose game has a terminal
// result. Per-card failures are logged and skipped. Returns the number
// settled.
func (g *Grader) GradeCards(ctx context.Context) (int, error) {
	pending, err := g.results.PendingSettleable(ctx, g.store.DB())
	if err != nil {
		return 0, fmt.Errorf("list settleable cards: %w", err)
	}

	settled := 0
	for _, sc := range pending {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		ok, err := g.settleOne(ctx, sc)
		if err != nil {
			g.logger.Error("card settlement failed", "card_result_id", sc.Result.ID, "error", err)
			continue
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

func (g *Grader) settleOne(ctx context.Context, sc repository.SettleableCard) (bool, error) {
	var body domain.CardBody
	if err := json.Unmarshal(sc.PayloadData, &body); err != nil {
		return false, fmt.Errorf("decode card payload: %w", err)
	}

	outcome, pnl := GradeCard(body.Recommendation.Type, sc.Game, body.OddsContext)
	if body.Prediction == domain.PredictNeutral {
		outcome, pnl = domain.OutcomeVoid, 0
	}

	now := time.Now().UTC()
	var applied bool
	err := g.store.WriteTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		applied, txErr = g.results.MarkSettled(ctx, tx, sc.Result.ID, outcome, pnl, now)
		if txErr != nil || !applied {
			return txErr
		}
		// Tracking rolls up inside the same transaction so the cache
		// can never double-count a card.
		return g.tracking.Apply(ctx, tx, sc.Result.Sport, outcome, pnl, now)
	})
	if err != nil {
		return false, err
	}
	if applied {
		g.logger.Info("card settled",
			"card_id", sc.Result.CardID, "sport", sc.Result.Sport,
			"outcome", outcome, "pnl_units", pnl)
	}
	return applied, nil
}
