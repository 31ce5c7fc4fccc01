package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/platform/internal/domain"
)

type oddsRepo struct{}

// NewOddsRepository returns a sqlite-backed OddsRepository.
func NewOddsRepository() OddsRepository {
	return &oddsRepo{}
}

func (r *oddsRepo) InsertSnapshot(ctx context.Context, db DBTX, snap *domain.OddsSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	var raw any
	if len(snap.Raw) > 0 {
		raw = string(snap.Raw)
	}
	var jobRunID any
	if snap.JobRunID != "" {
		jobRunID = snap.JobRunID
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO odds_snapshots
			(id, game_id, captured_at, moneyline_home, moneyline_away, total, spread_home, spread_away, raw, job_run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.GameID, fmtTime(snap.CapturedAt),
		snap.MoneylineHome, snap.MoneylineAway, snap.Total, snap.SpreadHome, snap.SpreadAway,
		raw, jobRunID)
	if err != nil {
		return fmt.Errorf("insert odds snapshot for %s: %w", snap.GameID, err)
	}
	return nil
}

func (r *oddsRepo) LatestByGame(ctx context.Context, db DBTX, gameID string) (*domain.OddsSnapshot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, game_id, captured_at, moneyline_home, moneyline_away, total, spread_home, spread_away, raw, job_run_id
		FROM odds_snapshots
		WHERE game_id = ?
		ORDER BY captured_at DESC
		LIMIT 1`, gameID)

	var snap domain.OddsSnapshot
	var capturedAt string
	var mlHome, mlAway sql.NullInt64
	var total, spreadHome, spreadAway sql.NullFloat64
	var raw, jobRunID sql.NullString

	err := row.Scan(&snap.ID, &snap.GameID, &capturedAt, &mlHome, &mlAway, &total, &spreadHome, &spreadAway, &raw, &jobRunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot for %s: %w", gameID, err)
	}

	snap.CapturedAt = parseTime(capturedAt)
	if mlHome.Valid {
		v := int(mlHome.Int64)
		snap.MoneylineHome = &v
	}
	if mlAway.Valid {
		v := int(mlAway.Int64)
		snap.MoneylineAway = &v
	}
	if total.Valid {
		snap.Total = &total.Float64
	}
	if spreadHome.Valid {
		snap.SpreadHome = &spreadHome.Float64
	}
	if spreadAway.Valid {
		snap.SpreadAway = &spreadAway.Float64
	}
	if raw.Valid {
		snap.Raw = []byte(raw.String)
	}
	if jobRunID.Valid {
		snap.JobRunID = jobRunID.String
	}
	return &snap, nil
}

func (r *oddsRepo) PruneBefore(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM odds_snapshots WHERE captured_at < ?`, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune odds snapshots: %w", err)
	}
	return res.RowsAffected()
}
