package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cardline/platform/internal/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx so repositories work with both.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GameRepository provides access to the games table.
type GameRepository interface {
	// Upsert inserts or updates a game keyed by its stable ID.
	// Last write wins on updated_at; a final status is never downgraded.
	Upsert(ctx context.Context, db DBTX, game *domain.Game) error

	// FindByID returns a game by its stable ID.
	FindByID(ctx context.Context, db DBTX, id string) (*domain.Game, error)

	// ListUpcoming returns games for the given sports whose start time is
	// within [from, to], ordered ascending by start time.
	ListUpcoming(ctx context.Context, db DBTX, sports []domain.Sport, from, to time.Time) ([]domain.Game, error)

	// ListFrom returns games starting at or after from, capped at limit.
	ListFrom(ctx context.Context, db DBTX, from time.Time, limit int) ([]domain.Game, error)

	// UngradedStartedBefore returns games that started before cutoff and
	// have no game_results row yet.
	UngradedStartedBefore(ctx context.Context, db DBTX, cutoff time.Time) ([]domain.Game, error)
}

// OddsRepository provides access to odds_snapshots. Append-only.
type OddsRepository interface {
	// InsertSnapshot appends one odds capture.
	InsertSnapshot(ctx context.Context, db DBTX, snap *domain.OddsSnapshot) error

	// LatestByGame returns the most recent snapshot for a game, or nil.
	LatestByGame(ctx context.Context, db DBTX, gameID string) (*domain.OddsSnapshot, error)

	// PruneBefore deletes snapshots captured before cutoff (retention
	// window); rows are never mutated.
	PruneBefore(ctx context.Context, db DBTX, cutoff time.Time) (int64, error)
}

// JobRunRepository provides access to job_runs. Only the job orchestrator
// writes here.
type JobRunRepository interface {
	// Insert creates a job-run row (normally status running).
	Insert(ctx context.Context, db DBTX, run *domain.JobRun) error

	// MarkSuccess transitions running -> success.
	MarkSuccess(ctx context.Context, db DBTX, id string, endedAt time.Time) error

	// MarkFailed transitions running -> failed with an error message.
	MarkFailed(ctx context.Context, db DBTX, id string, endedAt time.Time, msg string) error

	// ShouldRunJobKey implements the idempotency predicate: true unless a
	// prior run with this key succeeded or one is currently running.
	ShouldRunJobKey(ctx context.Context, db DBTX, key string) (bool, error)

	// FailRunning marks every running row failed with the given message.
	// Used on shutdown and startup recovery.
	FailRunning(ctx context.Context, db DBTX, msg string, endedAt time.Time) (int64, error)
}

// PrepareCardParams carries everything needed for the atomic
// model-output + card + pending-result write.
type PrepareCardParams struct {
	Output  *domain.ModelOutput
	Card    *domain.CardPayload
	BetType *domain.BetType
}

// CardRepository provides access to card_payloads and model_outputs.
// Only the card writer writes here.
type CardRepository interface {
	// PrepareModelAndCardWrite atomically inserts the model output, the
	// card payload and its pending card_results row. Returns false without
	// writing when a card for (game_id, card_type, model_version) already
	// exists in the same scheduling window.
	PrepareModelAndCardWrite(ctx context.Context, tx DBTX, params PrepareCardParams) (bool, error)

	// ListActiveByGame returns non-expired cards for a game, newest first.
	// cardType filters when non-empty.
	ListActiveByGame(ctx context.Context, db DBTX, gameID, cardType string, now time.Time) ([]domain.CardPayload, error)

	// ListActiveSince returns non-expired cards for games starting at or
	// after from, for the /games join.
	ListActiveSince(ctx context.Context, db DBTX, from, now time.Time) ([]domain.CardPayload, error)
}

// SettleableCard is a pending ledger row joined to its payload and the
// final game result.
type SettleableCard struct {
	Result      domain.CardResult
	PayloadData []byte
	Game        domain.GameResult
}

// ResultFilter narrows the /results queries.
type ResultFilter struct {
	Sport         string
	CardCategory  string // driver | call
	MinConfidence float64
	Market        string
	Limit         int
}

// ResultSegment is one sport x category x market breakdown row.
type ResultSegment struct {
	Sport    string  `json:"sport"`
	Category string  `json:"category"`
	Market   string  `json:"market"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Pushes   int     `json:"pushes"`
	Units    float64 `json:"units"`
}

// ResultSummary is the ledger roll-up for the read API.
type ResultSummary struct {
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Pushes  int     `json:"pushes"`
	Voids   int     `json:"voids"`
	Units   float64 `json:"units"`
	WinRate float64 `json:"win_rate"`
}

// ResultRepository provides access to card_results and game_results.
// Only the settlement engine writes here (after the initial pending insert
// by the card writer).
type ResultRepository interface {
	// UpsertGameResult writes the final score exactly once per game;
	// an existing row is left untouched.
	UpsertGameResult(ctx context.Context, db DBTX, res *domain.GameResult) error

	// FindGameResult returns the result row for a game, or nil.
	FindGameResult(ctx context.Context, db DBTX, gameID string) (*domain.GameResult, error)

	// PendingSettleable returns pending card_results whose game has a
	// terminal game_results row.
	PendingSettleable(ctx context.Context, db DBTX) ([]SettleableCard, error)

	// MarkSettled transitions one pending row to settled. Returns false
	// when the row was already settled (one-shot guarantee).
	MarkSettled(ctx context.Context, db DBTX, cardResultID string, outcome domain.CardOutcome, pnlUnits float64, settledAt time.Time) (bool, error)

	// Summary returns the filtered ledger roll-up.
	Summary(ctx context.Context, db DBTX, f ResultFilter) (*ResultSummary, error)

	// Segments returns the sport x category x market breakdown.
	Segments(ctx context.Context, db DBTX, f ResultFilter) ([]ResultSegment, error)

	// Recent returns recently settled ledger rows, newest first.
	Recent(ctx context.Context, db DBTX, f ResultFilter) ([]domain.CardResult, error)
}

// TrackingRepository provides access to the per-sport tracking_stats cache.
type TrackingRepository interface {
	// Apply folds one settled outcome into the sport's rolled-up counts.
	Apply(ctx context.Context, db DBTX, sport domain.Sport, outcome domain.CardOutcome, pnlUnits float64, at time.Time) error

	// GetAll returns every sport's tracking row.
	GetAll(ctx context.Context, db DBTX) ([]domain.TrackingStats, error)
}
