package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cardline/platform/internal/domain"
)

type resultRepo struct{}

// NewResultRepository returns a sqlite-backed ResultRepository.
func NewResultRepository() ResultRepository {
	return &resultRepo{}
}

func (r *resultRepo) UpsertGameResult(ctx context.Context, db DBTX, res *domain.GameResult) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO game_results (game_id, home_score, away_score, status, final_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO NOTHING`,
		res.GameID, res.HomeScore, res.AwayScore, res.Status, fmtTime(res.FinalAt))
	if err != nil {
		return fmt.Errorf("upsert game result %s: %w", res.GameID, err)
	}
	return nil
}

func (r *resultRepo) FindGameResult(ctx context.Context, db DBTX, gameID string) (*domain.GameResult, error) {
	row := db.QueryRowContext(ctx, `
		SELECT game_id, home_score, away_score, status, final_at
		FROM game_results WHERE game_id = ?`, gameID)

	var res domain.GameResult
	var finalAt string
	err := row.Scan(&res.GameID, &res.HomeScore, &res.AwayScore, &res.Status, &finalAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game result %s: %w", gameID, err)
	}
	res.FinalAt = parseTime(finalAt)
	return &res, nil
}

func (r *resultRepo) PendingSettleable(ctx context.Context, db DBTX) ([]SettleableCard, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT cr.id, cr.card_id, cr.game_id, cr.sport, cr.card_type, cr.recommended_bet_type,
		       cp.payload_data,
		       gr.home_score, gr.away_score, gr.status, gr.final_at
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		JOIN game_results gr ON gr.game_id = cr.game_id
		WHERE cr.status = 'pending'
		ORDER BY gr.final_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query settleable cards: %w", err)
	}
	defer rows.Close()

	var out []SettleableCard
	for rows.Next() {
		var sc SettleableCard
		var betType sql.NullString
		var payload, finalAt string
		err := rows.Scan(&sc.Result.ID, &sc.Result.CardID, &sc.Result.GameID, &sc.Result.Sport,
			&sc.Result.CardType, &betType, &payload,
			&sc.Game.HomeScore, &sc.Game.AwayScore, &sc.Game.Status, &finalAt)
		if err != nil {
			return nil, fmt.Errorf("scan settleable card: %w", err)
		}
		sc.Result.Status = domain.CardPending
		if betType.Valid {
			bt := domain.BetType(betType.String)
			sc.Result.RecommendedBetType = &bt
		}
		sc.PayloadData = []byte(payload)
		sc.Game.GameID = sc.Result.GameID
		sc.Game.FinalAt = parseTime(finalAt)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *resultRepo) MarkSettled(ctx context.Context, db DBTX, cardResultID string, outcome domain.CardOutcome, pnlUnits float64, settledAt time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE card_results
		SET status = 'settled', result = ?, pnl_units = ?, settled_at = ?
		WHERE id = ? AND status = 'pending'`,
		outcome, pnlUnits, fmtTime(settledAt), cardResultID)
	if err != nil {
		return false, fmt.Errorf("mark card result settled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// resultFilterSQL builds the shared WHERE clause for the /results queries.
// Card category: composite (top-level) cards are "call", sub-driver cards
// are "driver".
func resultFilterSQL(f ResultFilter) (string, []any) {
	clauses := []string{"cr.status = 'settled'"}
	var args []any

	if f.Sport != "" {
		clauses = append(clauses, "cr.sport = ?")
		args = append(args, f.Sport)
	}
	switch f.CardCategory {
	case "call":
		clauses = append(clauses, "cr.card_type LIKE '%-composite'")
	case "driver":
		clauses = append(clauses, "cr.card_type NOT LIKE '%-composite'")
	}
	if f.MinConfidence > 0 {
		clauses = append(clauses, "CAST(json_extract(cp.payload_data, '$.confidence') AS REAL) >= ?")
		args = append(args, f.MinConfidence)
	}
	if f.Market != "" {
		clauses = append(clauses, "cr.recommended_bet_type = ?")
		args = append(args, f.Market)
	}
	return strings.Join(clauses, " AND "), args
}

func (r *resultRepo) Summary(ctx context.Context, db DBTX, f ResultFilter) (*ResultSummary, error) {
	where, args := resultFilterSQL(f)
	row := db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN cr.result = 'win' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cr.result = 'loss' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cr.result = 'push' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cr.result = 'void' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(cr.pnl_units), 0)
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		WHERE `+where, args...)

	var s ResultSummary
	if err := row.Scan(&s.Wins, &s.Losses, &s.Pushes, &s.Voids, &s.Units); err != nil {
		return nil, fmt.Errorf("results summary: %w", err)
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided)
	}
	return &s, nil
}

func (r *resultRepo) Segments(ctx context.Context, db DBTX, f ResultFilter) ([]ResultSegment, error) {
	where, args := resultFilterSQL(f)
	rows, err := db.QueryContext(ctx, `
		SELECT cr.sport,
			CASE WHEN cr.card_type LIKE '%-composite' THEN 'call' ELSE 'driver' END AS category,
			COALESCE(cr.recommended_bet_type, ''),
			SUM(CASE WHEN cr.result = 'win' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cr.result = 'loss' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cr.result = 'push' THEN 1 ELSE 0 END),
			COALESCE(SUM(cr.pnl_units), 0)
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		WHERE `+where+`
		GROUP BY cr.sport, category, cr.recommended_bet_type
		ORDER BY cr.sport, category`, args...)
	if err != nil {
		return nil, fmt.Errorf("results segments: %w", err)
	}
	defer rows.Close()

	var out []ResultSegment
	for rows.Next() {
		var seg ResultSegment
		if err := rows.Scan(&seg.Sport, &seg.Category, &seg.Market,
			&seg.Wins, &seg.Losses, &seg.Pushes, &seg.Units); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func (r *resultRepo) Recent(ctx context.Context, db DBTX, f ResultFilter) ([]domain.CardResult, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	where, args := resultFilterSQL(f)
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, `
		SELECT cr.id, cr.card_id, cr.game_id, cr.sport, cr.card_type, cr.recommended_bet_type,
		       cr.status, cr.result, cr.settled_at, cr.pnl_units
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		WHERE `+where+`
		ORDER BY cr.settled_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	var out []domain.CardResult
	for rows.Next() {
		var cr domain.CardResult
		var betType, result, settledAt sql.NullString
		var pnl sql.NullFloat64
		if err := rows.Scan(&cr.ID, &cr.CardID, &cr.GameID, &cr.Sport, &cr.CardType,
			&betType, &cr.Status, &result, &settledAt, &pnl); err != nil {
			return nil, fmt.Errorf("scan card result: %w", err)
		}
		if betType.Valid {
			bt := domain.BetType(betType.String)
			cr.RecommendedBetType = &bt
		}
		if result.Valid {
			o := domain.CardOutcome(result.String)
			cr.Result = &o
		}
		cr.SettledAt = parseTimePtr(settledAt)
		if pnl.Valid {
			cr.PnlUnits = &pnl.Float64
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}
