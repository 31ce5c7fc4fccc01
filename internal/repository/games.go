package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cardline/platform/internal/domain"
)

type gameRepo struct{}

// NewGameRepository returns a sqlite-backed GameRepository.
func NewGameRepository() GameRepository {
	return &gameRepo{}
}

func (r *gameRepo) Upsert(ctx context.Context, db DBTX, game *domain.Game) error {
	if game.ID == "" {
		game.ID = domain.GameID(game.Sport, game.ProviderGameID)
	}
	now := time.Now().UTC()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	game.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO games (id, sport, provider_game_id, home_team, away_team, game_time_utc, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			home_team = excluded.home_team,
			away_team = excluded.away_team,
			game_time_utc = excluded.game_time_utc,
			status = CASE WHEN games.status = 'final' THEN games.status ELSE excluded.status END,
			updated_at = excluded.updated_at`,
		game.ID, game.Sport, game.ProviderGameID, game.HomeTeam, game.AwayTeam,
		fmtTime(game.GameTimeUTC), game.Status, fmtTime(game.CreatedAt), fmtTime(game.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", game.ID, err)
	}
	return nil
}

const gameColumns = `id, sport, provider_game_id, home_team, away_team, game_time_utc, status, created_at, updated_at`

func scanGame(row interface{ Scan(...any) error }) (*domain.Game, error) {
	var g domain.Game
	var gameTime, createdAt, updatedAt string
	err := row.Scan(&g.ID, &g.Sport, &g.ProviderGameID, &g.HomeTeam, &g.AwayTeam,
		&gameTime, &g.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	g.GameTimeUTC = parseTime(gameTime)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return &g, nil
}

func (r *gameRepo) FindByID(ctx context.Context, db DBTX, id string) (*domain.Game, error) {
	row := db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game %s: %w", id, err)
	}
	return g, nil
}

func (r *gameRepo) ListUpcoming(ctx context.Context, db DBTX, sports []domain.Sport, from, to time.Time) ([]domain.Game, error) {
	if len(sports) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sports)), ",")
	args := make([]any, 0, len(sports)+2)
	for _, s := range sports {
		args = append(args, s)
	}
	args = append(args, fmtTime(from), fmtTime(to))

	rows, err := db.QueryContext(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE sport IN (`+placeholders+`) AND game_time_utc >= ? AND game_time_utc <= ?
		ORDER BY game_time_utc ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list upcoming games: %w", err)
	}
	defer rows.Close()
	return collectGames(rows)
}

func (r *gameRepo) ListFrom(ctx context.Context, db DBTX, from time.Time, limit int) ([]domain.Game, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE game_time_utc >= ?
		ORDER BY game_time_utc ASC
		LIMIT ?`, fmtTime(from), limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	return collectGames(rows)
}

func (r *gameRepo) UngradedStartedBefore(ctx context.Context, db DBTX, cutoff time.Time) ([]domain.Game, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+gameColumns+` FROM games g
		WHERE g.game_time_utc <= ?
		  AND NOT EXISTS (SELECT 1 FROM game_results r WHERE r.game_id = g.id)
		ORDER BY g.game_time_utc ASC`, fmtTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list ungraded games: %w", err)
	}
	defer rows.Close()
	return collectGames(rows)
}

func collectGames(rows *sql.Rows) ([]domain.Game, error) {
	var out []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
