package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/platform/internal/domain"
)

type cardRepo struct{}

// NewCardRepository returns a sqlite-backed CardRepository.
func NewCardRepository() CardRepository {
	return &cardRepo{}
}

func (r *cardRepo) PrepareModelAndCardWrite(ctx context.Context, tx DBTX, params PrepareCardParams) (bool, error) {
	card := params.Card
	out := params.Output

	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM card_payloads
		WHERE game_id = ? AND card_type = ? AND model_version = ? AND window_key = ?`,
		card.GameID, card.CardType, card.ModelVersion, card.WindowKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check existing card: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO model_outputs
			(id, game_id, model_name, model_version, prediction_type, predicted_at, confidence, output, odds_snapshot_id, job_run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.GameID, out.ModelName, out.ModelVersion, out.PredictionType,
		fmtTime(out.PredictedAt), out.Confidence, nullBytes(out.Output), out.OddsSnapshotID, out.JobRunID)
	if err != nil {
		return false, domain.ErrStoreIntegrity("insert model output", err)
	}

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	card.ModelOutputIDs = append(card.ModelOutputIDs, out.ID)
	outputIDs, _ := json.Marshal(card.ModelOutputIDs)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO card_payloads
			(id, game_id, sport, card_type, card_title, schema_version, window_key,
			 created_at, expires_at, payload_data, model_output_ids, model_version, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.GameID, card.Sport, card.CardType, card.CardTitle,
		card.SchemaVersion, card.WindowKey, fmtTime(card.CreatedAt), fmtTimePtr(card.ExpiresAt),
		string(card.PayloadData), string(outputIDs), card.ModelVersion, nullBytes(card.Metadata))
	if err != nil {
		return false, domain.ErrStoreIntegrity("insert card payload", err)
	}

	var betType any
	if params.BetType != nil {
		betType = string(*params.BetType)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO card_results (id, card_id, game_id, sport, card_type, recommended_bet_type, status)
		VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		uuid.NewString(), card.ID, card.GameID, card.Sport, card.CardType, betType)
	if err != nil {
		return false, domain.ErrStoreIntegrity("insert pending card result", err)
	}

	return true, nil
}

const cardColumns = `id, game_id, sport, card_type, card_title, schema_version, window_key,
	created_at, expires_at, payload_data, model_output_ids, model_version, metadata`

func scanCard(row interface{ Scan(...any) error }) (*domain.CardPayload, error) {
	var c domain.CardPayload
	var createdAt string
	var expiresAt, metadata sql.NullString
	var payload, outputIDs string
	err := row.Scan(&c.ID, &c.GameID, &c.Sport, &c.CardType, &c.CardTitle,
		&c.SchemaVersion, &c.WindowKey, &createdAt, &expiresAt, &payload, &outputIDs,
		&c.ModelVersion, &metadata)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.ExpiresAt = parseTimePtr(expiresAt)
	c.PayloadData = []byte(payload)
	if metadata.Valid {
		c.Metadata = []byte(metadata.String)
	}
	if err := json.Unmarshal([]byte(outputIDs), &c.ModelOutputIDs); err != nil {
		return nil, fmt.Errorf("decode model_output_ids: %w", err)
	}
	return &c, nil
}

func (r *cardRepo) ListActiveByGame(ctx context.Context, db DBTX, gameID, cardType string, now time.Time) ([]domain.CardPayload, error) {
	query := `
		SELECT ` + cardColumns + ` FROM card_payloads
		WHERE game_id = ? AND (expires_at IS NULL OR expires_at > ?)`
	args := []any{gameID, fmtTime(now)}
	if cardType != "" {
		query += ` AND card_type = ?`
		args = append(args, cardType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active cards for %s: %w", gameID, err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func (r *cardRepo) ListActiveSince(ctx context.Context, db DBTX, from, now time.Time) ([]domain.CardPayload, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM card_payloads c
		WHERE (c.expires_at IS NULL OR c.expires_at > ?)
		  AND EXISTS (SELECT 1 FROM games g WHERE g.id = c.game_id AND g.game_time_utc >= ?)
		ORDER BY c.game_id, c.card_type, c.created_at DESC`, fmtTime(now), fmtTime(from))
	if err != nil {
		return nil, fmt.Errorf("list active cards: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]domain.CardPayload, error) {
	var out []domain.CardPayload
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
