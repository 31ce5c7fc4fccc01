package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cardline/platform/internal/domain"
)

type trackingRepo struct{}

// NewTrackingRepository returns a sqlite-backed TrackingRepository.
func NewTrackingRepository() TrackingRepository {
	return &trackingRepo{}
}

func (r *trackingRepo) Apply(ctx context.Context, db DBTX, sport domain.Sport, outcome domain.CardOutcome, pnlUnits float64, at time.Time) error {
	var wins, losses, pushes, voids int
	switch outcome {
	case domain.OutcomeWin:
		wins = 1
	case domain.OutcomeLoss:
		losses = 1
	case domain.OutcomePush:
		pushes = 1
	case domain.OutcomeVoid:
		voids = 1
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO tracking_stats (sport, wins, losses, pushes, voids, units, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sport) DO UPDATE SET
			wins = tracking_stats.wins + excluded.wins,
			losses = tracking_stats.losses + excluded.losses,
			pushes = tracking_stats.pushes + excluded.pushes,
			voids = tracking_stats.voids + excluded.voids,
			units = tracking_stats.units + excluded.units,
			updated_at = excluded.updated_at`,
		sport, wins, losses, pushes, voids, pnlUnits, fmtTime(at))
	if err != nil {
		return fmt.Errorf("apply tracking stats for %s: %w", sport, err)
	}
	return nil
}

func (r *trackingRepo) GetAll(ctx context.Context, db DBTX) ([]domain.TrackingStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT sport, wins, losses, pushes, voids, units, updated_at
		FROM tracking_stats ORDER BY sport`)
	if err != nil {
		return nil, fmt.Errorf("query tracking stats: %w", err)
	}
	defer rows.Close()

	var out []domain.TrackingStats
	for rows.Next() {
		var ts domain.TrackingStats
		var updatedAt string
		if err := rows.Scan(&ts.Sport, &ts.Wins, &ts.Losses, &ts.Pushes, &ts.Voids, &ts.Units, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking stats: %w", err)
		}
		ts.UpdatedAt = parseTime(updatedAt)
		out = append(out, ts)
	}
	return out, rows.Err()
}
