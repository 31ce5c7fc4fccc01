package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// GameStatus tracks the lifecycle of a game.
type GameStatus string

const (
	GameScheduled  GameStatus = "scheduled"
	GameInProgress GameStatus = "in_progress"
	GameFinal      GameStatus = "final"
)

// Game represents one scheduled game. Identity is (sport, provider_game_id);
// the row ID is the stable external key "game-<sport>-<providerGameId>".
type Game struct {
	ID             string     `json:"id"`
	Sport          Sport      `json:"sport"`
	ProviderGameID string     `json:"provider_game_id"`
	HomeTeam       string     `json:"home_team"`
	AwayTeam       string     `json:"away_team"`
	GameTimeUTC    time.Time  `json:"game_time_utc"`
	Status         GameStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GameID builds the stable external game key.
func GameID(sport Sport, providerGameID string) string {
	return fmt.Sprintf("game-%s-%s", sport, providerGameID)
}

// OddsSnapshot is a point-in-time capture of one game's market. Append-only.
type OddsSnapshot struct {
	ID            string          `json:"id"`
	GameID        string          `json:"game_id"`
	CapturedAt    time.Time       `json:"captured_at"`
	MoneylineHome *int            `json:"moneyline_home,omitempty"`
	MoneylineAway *int            `json:"moneyline_away,omitempty"`
	Total         *float64        `json:"total,omitempty"`
	SpreadHome    *float64        `json:"spread_home,omitempty"`
	SpreadAway    *float64        `json:"spread_away,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	JobRunID      string          `json:"job_run_id,omitempty"`
}

// GameResultStatus is the terminal status recorded by game grading.
type GameResultStatus string

const (
	GameResultFinal     GameResultStatus = "final"
	GameResultCancelled GameResultStatus = "cancelled"
)

// GameResult records the final score for a game. Written exactly once.
type GameResult struct {
	GameID    string           `json:"game_id"`
	HomeScore int              `json:"home_score"`
	AwayScore int              `json:"away_score"`
	Status    GameResultStatus `json:"status"`
	FinalAt   time.Time        `json:"final_at"`
}
