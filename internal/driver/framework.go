package driver

import (
	"fmt"
	"math"
	"time"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/enrich"
)

// Input is everything a driver may look at for one game. Drivers are
// deterministic pure functions of this struct.
type Input struct {
	Game     domain.Game
	Snapshot *domain.OddsSnapshot
	Home     enrich.TeamMetrics
	Away     enrich.TeamMetrics
	Now      time.Time
}

// Module is one sport's driver bundle.
type Module interface {
	Sport() domain.Sport
	ModelVersion() string
	// ComputeDrivers returns zero or more descriptors for the game.
	// Abstaining drivers simply contribute nothing.
	ComputeDrivers(in Input) []domain.DriverDescriptor
}

const (
	confidenceFloor = 0.50
	confidenceCeil  = 0.85
)

// clampConfidence bounds a confidence score to the publishable range.
func clampConfidence(c float64) float64 {
	return math.Max(confidenceFloor, math.Min(confidenceCeil, c))
}

// deviationConfidence turns a directional score in [0,1] into a
// confidence: the further from neutral 0.5 in either direction, the
// stronger the signal.
func deviationConfidence(score float64) float64 {
	return clampConfidence(0.5 + math.Abs(score-0.5))
}

// predictionFromScore maps a directional score to a side. Exactly 0.5
// is neutral.
func predictionFromScore(score float64) domain.Prediction {
	switch {
	case score > 0.5:
		return domain.PredictHome
	case score < 0.5:
		return domain.PredictAway
	default:
		return domain.PredictNeutral
	}
}

// subScore is one weighted component of a composite driver.
type subScore struct {
	key    string
	weight float64
	score  float64
	ok     bool
}

// compositeScore folds sub-driver scores into one directional score.
// Missing components drop out and their weight is not redistributed, so
// the remaining deviation shrinks toward neutral. Reports how many
// components contributed.
func compositeScore(subs []subScore) (score float64, contributing int) {
	score = 0.5
	for _, s := range subs {
		if !s.ok {
			continue
		}
		score += s.weight * (s.score - 0.5)
		contributing++
	}
	return score, contributing
}

// impliedProbability converts an American price to a win probability.
func impliedProbability(price int) float64 {
	p := float64(price)
	if price > 0 {
		return 100 / (p + 100)
	}
	return -p / (-p + 100)
}

// marketSignal derives a de-vigged home win probability from the latest
// moneyline pair.
func marketSignal(snap *domain.OddsSnapshot) (float64, bool) {
	if snap == nil || snap.MoneylineHome == nil || snap.MoneylineAway == nil {
		return 0, false
	}
	ph := impliedProbability(*snap.MoneylineHome)
	pa := impliedProbability(*snap.MoneylineAway)
	if ph+pa == 0 {
		return 0, false
	}
	return ph / (ph + pa), true
}

// netRatingSignal compares recent scoring margins. Scaled so a 15-point
// net rating edge saturates the signal.
func netRatingSignal(home, away enrich.TeamMetrics, scale float64) (float64, bool) {
	if home.NetRating == nil || away.NetRating == nil {
		return 0, false
	}
	diff := *home.NetRating - *away.NetRating
	return clamp01(0.5 + diff/(2*scale)), true
}

// formSignal compares win counts over the recent form window.
func formSignal(home, away enrich.TeamMetrics) (float64, bool) {
	if !home.Known() || !away.Known() {
		return 0, false
	}
	diff := countWins(home.Form) - countWins(away.Form)
	return clamp01(0.5 + 0.06*float64(diff)), true
}

// restSignal compares days of rest. Each extra day is worth a nudge.
func restSignal(home, away enrich.TeamMetrics) (float64, bool) {
	if home.RestDays == nil || away.RestDays == nil {
		return 0, false
	}
	diff := *home.RestDays - *away.RestDays
	return clamp01(0.5 + 0.05*float64(diff)), true
}

func countWins(form string) int {
	n := 0
	for _, c := range form {
		if c == 'W' {
			n++
		}
	}
	return n
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// compositeDescriptor assembles the top-level driver card for a sport
// from its weighted sub-scores. Returns nil when the score lands
// exactly neutral or nothing contributed.
func compositeDescriptor(sport domain.Sport, title string, subs []subScore) *domain.DriverDescriptor {
	score, contributing := compositeScore(subs)
	if contributing == 0 {
		return nil
	}
	prediction := predictionFromScore(score)
	if prediction == domain.PredictNeutral {
		return nil
	}

	confidence := deviationConfidence(score)
	status := domain.DriverOK
	if contributing < len(subs) {
		status = domain.DriverDegraded
	}

	inputs := make(map[string]any, len(subs))
	for _, s := range subs {
		if s.ok {
			inputs[s.key] = s.score
		}
	}

	tier := domain.TierForConfidence(confidence)
	betType := domain.BetMoneyline
	return &domain.DriverDescriptor{
		CardType:           string(sport) + "-composite",
		CardTitle:          title,
		DriverKey:          string(sport) + "-composite",
		Prediction:         prediction,
		Confidence:         confidence,
		Tier:               tier,
		Reasoning:          compositeReasoning(prediction, subs),
		DriverScore:        &score,
		DriverStatus:       status,
		DriverInputs:       inputs,
		RecommendedBetType: &betType,
		EVThresholdPassed:  tier != nil,
	}
}

func compositeReasoning(p domain.Prediction, subs []subScore) string {
	side := "home side"
	if p == domain.PredictAway {
		side = "away side"
	}
	strongest := ""
	best := 0.0
	for _, s := range subs {
		if !s.ok {
			continue
		}
		if d := math.Abs(s.score - 0.5); d > best {
			best = d
			strongest = s.key
		}
	}
	if strongest == "" {
		return fmt.Sprintf("Weighted signals lean %s.", side)
	}
	return fmt.Sprintf("Weighted signals lean %s, led by %s.", side, strongest)
}
