package driver

import (
	"fmt"
	"math"

	"github.com/cardline/platform/internal/domain"
)

// Pace percentile bounds for the combined-points proxy. A team pushing
// 240 combined points sits at the fast extreme of the league.
const (
	paceFloor = 200.0
	paceCeil  = 240.0
	// paceClashGap is the percentile-point gap at which two styles
	// cancel each other out and the pace driver abstains.
	paceClashGap = 40.0
)

// nbaModule bundles the basketball drivers: the weighted composite, a
// pace-matchup total, and a rest edge.
type nbaModule struct{}

func NewNBAModule() Module { return nbaModule{} }

func (nbaModule) Sport() domain.Sport  { return domain.SportNBA }
func (nbaModule) ModelVersion() string { return "nba-v2" }

func (m nbaModule) ComputeDrivers(in Input) []domain.DriverDescriptor {
	var out []domain.DriverDescriptor

	market, marketOK := marketSignal(in.Snapshot)
	net, netOK := netRatingSignal(in.Home, in.Away, 15.0)
	form, formOK := formSignal(in.Home, in.Away)
	rest, restOK := restSignal(in.Home, in.Away)

	if d := compositeDescriptor(domain.SportNBA, "NBA Composite Edge", []subScore{
		{key: "market", weight: 0.35, score: market, ok: marketOK},
		{key: "net_rating", weight: 0.25, score: net, ok: netOK},
		{key: "form", weight: 0.20, score: form, ok: formOK},
		{key: "rest", weight: 0.20, score: rest, ok: restOK},
	}); d != nil {
		out = append(out, *d)
	}
	if d := m.paceMatchup(in); d != nil {
		out = append(out, *d)
	}
	if d := restEdge(domain.SportNBA, in); d != nil {
		out = append(out, *d)
	}
	return out
}

// pacePercentile places a pace value on the league distribution.
func pacePercentile(pace float64) float64 {
	return 100 * clamp01((pace-paceFloor)/(paceCeil-paceFloor))
}

// paceSynergy classifies how two teams' tempos combine.
func paceSynergy(homePct, awayPct float64) string {
	if math.Abs(homePct-awayPct) >= paceClashGap {
		return "PACE_CLASH"
	}
	avg := (homePct + awayPct) / 2
	switch {
	case avg >= 60:
		return "MUTUAL_FAST"
	case avg <= 40:
		return "MUTUAL_SLOW"
	default:
		return "MIXED"
	}
}

// paceMatchup projects the total from tempo synergy. Clashing styles
// neutralize each other; no card in that case.
func (m nbaModule) paceMatchup(in Input) *domain.DriverDescriptor {
	if in.Snapshot == nil || in.Snapshot.Total == nil {
		return nil
	}
	if in.Home.Pace == nil || in.Away.Pace == nil {
		return nil
	}

	homePct := pacePercentile(*in.Home.Pace)
	awayPct := pacePercentile(*in.Away.Pace)
	synergy := paceSynergy(homePct, awayPct)

	var prediction domain.Prediction
	switch synergy {
	case "MUTUAL_FAST":
		prediction = domain.PredictOver
	case "MUTUAL_SLOW":
		prediction = domain.PredictUnder
	default:
		// PACE_CLASH and MIXED carry no tempo edge.
		return nil
	}

	avg := (homePct + awayPct) / 2
	score := clamp01(avg / 100)
	confidence := deviationConfidence(score)
	tier := domain.TierForConfidence(confidence)
	betType := domain.BetTotal

	return &domain.DriverDescriptor{
		CardType:   "nba-pace-matchup",
		CardTitle:  "Pace Matchup",
		DriverKey:  "nba-pace-matchup",
		Prediction: prediction,
		Confidence: confidence,
		Tier:       tier,
		Reasoning: fmt.Sprintf("Both teams play at the %.0fth percentile of tempo; styles compound rather than clash.",
			avg),
		DriverScore:  &score,
		DriverStatus: domain.DriverOK,
		DriverInputs: map[string]any{
			"home_pace_pct": homePct,
			"away_pace_pct": awayPct,
			"synergy":       synergy,
		},
		RecommendedBetType: &betType,
		EVThresholdPassed:  tier != nil,
	}
}
