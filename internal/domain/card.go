package domain

import (
	"encoding/json"
	"time"
)

// CardSchemaVersion is stamped on every persisted payload.
const CardSchemaVersion = 1

// RecommendationType is the settled side recovered from a card payload.
type RecommendationType string

const (
	RecMLHome     RecommendationType = "ML_HOME"
	RecMLAway     RecommendationType = "ML_AWAY"
	RecSpreadHome RecommendationType = "SPREAD_HOME"
	RecSpreadAway RecommendationType = "SPREAD_AWAY"
	RecTotalOver  RecommendationType = "TOTAL_OVER"
	RecTotalUnder RecommendationType = "TOTAL_UNDER"
	RecPass       RecommendationType = "PASS"
)

// CardResultStatus tracks the settlement ledger row lifecycle.
type CardResultStatus string

const (
	CardPending CardResultStatus = "pending"
	CardSettled CardResultStatus = "settled"
)

// CardOutcome is a settled card's result.
type CardOutcome string

const (
	OutcomeWin  CardOutcome = "win"
	OutcomeLoss CardOutcome = "loss"
	OutcomePush CardOutcome = "push"
	OutcomeVoid CardOutcome = "void"
)

// CardPayload is a persisted analytical artifact tied to one game and one
// card_type. WindowKey records the scheduling window that produced it.
type CardPayload struct {
	ID             string          `json:"id"`
	GameID         string          `json:"game_id"`
	Sport          Sport           `json:"sport"`
	CardType       string          `json:"card_type"`
	CardTitle      string          `json:"card_title"`
	SchemaVersion  int             `json:"schema_version"`
	WindowKey      string          `json:"window_key"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	PayloadData    json.RawMessage `json:"payload_data"`
	ModelOutputIDs []string        `json:"model_output_ids"`
	ModelVersion   string          `json:"model_version"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// CardResult is the settlement ledger row, one-to-one with CardPayload.
type CardResult struct {
	ID                 string           `json:"id"`
	CardID             string           `json:"card_id"`
	GameID             string           `json:"game_id"`
	Sport              Sport            `json:"sport"`
	CardType           string           `json:"card_type"`
	RecommendedBetType *BetType         `json:"recommended_bet_type,omitempty"`
	Status             CardResultStatus `json:"status"`
	Result             *CardOutcome     `json:"result,omitempty"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`
	PnlUnits           *float64         `json:"pnl_units,omitempty"`
	Metadata           json.RawMessage  `json:"metadata,omitempty"`
}

// TrackingStats is the per-sport rolled-up settlement summary.
type TrackingStats struct {
	Sport     Sport     `json:"sport"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Pushes    int       `json:"pushes"`
	Voids     int       `json:"voids"`
	Units     float64   `json:"units"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Card payload envelope (serialized into payload_data) ---

// Recommendation is the bet the card stands behind.
type Recommendation struct {
	Type       RecommendationType `json:"type"`
	Text       string             `json:"text"`
	PassReason string             `json:"pass_reason,omitempty"`
}

// Projection carries the model's numeric projections, where produced.
type Projection struct {
	Total       *float64 `json:"total,omitempty"`
	MarginHome  *float64 `json:"margin_home,omitempty"`
	WinProbHome *float64 `json:"win_prob_home,omitempty"`
}

// MarketSnapshot is the displayed market at card creation.
type MarketSnapshot struct {
	H2HHome    *int     `json:"h2h_home,omitempty"`
	H2HAway    *int     `json:"h2h_away,omitempty"`
	Total      *float64 `json:"total,omitempty"`
	SpreadHome *float64 `json:"spread_home,omitempty"`
	SpreadAway *float64 `json:"spread_away,omitempty"`
}

// OddsContext is the decision-time price set used at settlement.
type OddsContext struct {
	H2HHome    *int      `json:"h2h_home,omitempty"`
	H2HAway    *int      `json:"h2h_away,omitempty"`
	SpreadHome *float64  `json:"spread_home,omitempty"`
	SpreadAway *float64  `json:"spread_away,omitempty"`
	Total      *float64  `json:"total,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// DriverBlock records the driver that produced the card.
type DriverBlock struct {
	Key    string         `json:"key"`
	Score  *float64       `json:"score,omitempty"`
	Status DriverStatus   `json:"status"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

// DriverWeight is one row of the driver-summary weights table.
type DriverWeight struct {
	Driver string   `json:"driver"`
	Weight float64  `json:"weight"`
	Score  *float64 `json:"score,omitempty"`
	Impact float64  `json:"impact"`
	Status string   `json:"status"`
}

// DriverSummary is the per-card weights/impact table.
type DriverSummary struct {
	Weights    []DriverWeight `json:"weights"`
	ImpactNote string         `json:"impact_note,omitempty"`
}

// CardMeta carries provenance flags.
type CardMeta struct {
	InferenceSource string `json:"inference_source"`
	IsMock          bool   `json:"is_mock"`
}

// CardBody is the canonical card payload envelope, validated against the
// per-card-type field schema before write.
type CardBody struct {
	GameID             string          `json:"game_id"`
	Sport              Sport           `json:"sport"`
	ModelVersion       string          `json:"model_version"`
	HomeTeam           string          `json:"home_team"`
	AwayTeam           string          `json:"away_team"`
	Matchup            string          `json:"matchup"`
	StartTimeUTC       time.Time       `json:"start_time_utc"`
	StartTimeLocal     string          `json:"start_time_local"`
	Timezone           string          `json:"timezone"`
	Countdown          string          `json:"countdown"`
	Recommendation     Recommendation  `json:"recommendation"`
	Projection         Projection      `json:"projection"`
	Market             MarketSnapshot  `json:"market"`
	Edge               *float64        `json:"edge,omitempty"`
	ConfidencePct      int             `json:"confidence_pct"`
	DriversActive      []string        `json:"drivers_active"`
	Prediction         Prediction      `json:"prediction"`
	Confidence         float64         `json:"confidence"`
	RecommendedBetType *BetType        `json:"recommended_bet_type,omitempty"`
	Tier               *Tier           `json:"tier,omitempty"`
	Reasoning          string          `json:"reasoning"`
	OddsContext        OddsContext     `json:"odds_context"`
	EVPassed           bool            `json:"ev_passed"`
	Disclaimer         string          `json:"disclaimer"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Driver             DriverBlock     `json:"driver"`
	DriverSummary      DriverSummary   `json:"driver_summary"`
	Meta               CardMeta        `json:"meta"`
}
