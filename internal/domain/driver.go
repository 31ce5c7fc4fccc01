package domain

// Prediction is the direction a driver leans.
type Prediction string

const (
	PredictHome    Prediction = "HOME"
	PredictAway    Prediction = "AWAY"
	PredictOver    Prediction = "OVER"
	PredictUnder   Prediction = "UNDER"
	PredictNeutral Prediction = "NEUTRAL"
)

// Tier is a coarse confidence bucket.
type Tier string

const (
	TierSuper Tier = "SUPER"
	TierBest  Tier = "BEST"
	TierWatch Tier = "WATCH"
)

// DriverStatus reports whether a driver ran on full inputs.
type DriverStatus string

const (
	DriverOK       DriverStatus = "ok"
	DriverDegraded DriverStatus = "degraded"
	DriverSkipped  DriverStatus = "skipped"
)

// BetType is the market a card recommends.
type BetType string

const (
	BetMoneyline BetType = "moneyline"
	BetSpread    BetType = "spread"
	BetTotal     BetType = "total"
)

// DriverDescriptor is the structural contract every sport driver satisfies.
// A driver that finds no edge returns no descriptor at all.
type DriverDescriptor struct {
	CardType           string         `json:"card_type"`
	CardTitle          string         `json:"card_title"`
	DriverKey          string         `json:"driver_key"`
	Prediction         Prediction     `json:"prediction"`
	Confidence         float64        `json:"confidence"`
	Tier               *Tier          `json:"tier,omitempty"`
	Reasoning          string         `json:"reasoning"`
	DriverScore        *float64       `json:"driver_score,omitempty"`
	DriverStatus       DriverStatus   `json:"driver_status"`
	DriverInputs       map[string]any `json:"driver_inputs,omitempty"`
	RecommendedBetType *BetType       `json:"recommended_bet_type,omitempty"`
	EVThresholdPassed  bool           `json:"ev_threshold_passed"`
	IsMock             bool           `json:"is_mock"`
}

// TierForConfidence derives the default tier bucket from a confidence score.
// Drivers may override when their domain logic dictates.
func TierForConfidence(confidence float64) *Tier {
	switch {
	case confidence >= 0.75:
		t := TierSuper
		return &t
	case confidence >= 0.70:
		t := TierBest
		return &t
	case confidence >= 0.60:
		t := TierWatch
		return &t
	default:
		return nil
	}
}
