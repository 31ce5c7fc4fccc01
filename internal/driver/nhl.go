package driver

import (
	"fmt"
	"math"

	"github.com/cardline/platform/internal/domain"
)

// nhlModule bundles the hockey drivers: the weighted composite, a
// goalie/defense edge, a first-period pace total, and a rest edge.
type nhlModule struct{}

func NewNHLModule() Module { return nhlModule{} }

func (nhlModule) Sport() domain.Sport  { return domain.SportNHL }
func (nhlModule) ModelVersion() string { return "nhl-v2" }

func (m nhlModule) ComputeDrivers(in Input) []domain.DriverDescriptor {
	var out []domain.DriverDescriptor

	market, marketOK := marketSignal(in.Snapshot)
	net, netOK := netRatingSignal(in.Home, in.Away, 2.0)
	form, formOK := formSignal(in.Home, in.Away)
	rest, restOK := restSignal(in.Home, in.Away)

	if d := compositeDescriptor(domain.SportNHL, "NHL Composite Edge", []subScore{
		{key: "market", weight: 0.40, score: market, ok: marketOK},
		{key: "net_rating", weight: 0.25, score: net, ok: netOK},
		{key: "form", weight: 0.20, score: form, ok: formOK},
		{key: "rest", weight: 0.15, score: rest, ok: restOK},
	}); d != nil {
		out = append(out, *d)
	}
	if d := m.goalieEdge(in); d != nil {
		out = append(out, *d)
	}
	if d := m.firstPeriodPace(in); d != nil {
		out = append(out, *d)
	}
	if d := restEdge(domain.SportNHL, in); d != nil {
		out = append(out, *d)
	}
	return out
}

// goalieEdge leans on goals-against form as a netminding proxy. A gap
// under half a goal per game is noise; abstain.
func (m nhlModule) goalieEdge(in Input) *domain.DriverDescriptor {
	if in.Home.AvgPointsAllowed == nil || in.Away.AvgPointsAllowed == nil {
		return nil
	}
	homeGA := *in.Home.AvgPointsAllowed
	awayGA := *in.Away.AvgPointsAllowed
	gap := awayGA - homeGA
	if math.Abs(gap) < 0.5 {
		return nil
	}

	score := clamp01(0.5 + gap/4)
	prediction := predictionFromScore(score)
	if prediction == domain.PredictNeutral {
		return nil
	}

	confidence := deviationConfidence(score)
	tier := domain.TierForConfidence(confidence)
	betType := domain.BetMoneyline
	edgeGA, softGA := homeGA, awayGA
	if prediction == domain.PredictAway {
		edgeGA, softGA = awayGA, homeGA
	}

	return &domain.DriverDescriptor{
		CardType:   "nhl-goalie",
		CardTitle:  "Goalie Edge",
		DriverKey:  "nhl-goalie",
		Prediction: prediction,
		Confidence: confidence,
		Tier:       tier,
		Reasoning: fmt.Sprintf("Allowing %.1f goals per game against opponent's %.1f over the recent stretch.",
			edgeGA, softGA),
		DriverScore:        &score,
		DriverStatus:       domain.DriverOK,
		DriverInputs:       map[string]any{"home_ga": homeGA, "away_ga": awayGA},
		RecommendedBetType: &betType,
		EVThresholdPassed:  tier != nil,
	}
}

// firstPeriodPace projects the total from combined recent scoring. A
// projection within 0.3 goals of the posted line is no edge.
func (m nhlModule) firstPeriodPace(in Input) *domain.DriverDescriptor {
	if in.Snapshot == nil || in.Snapshot.Total == nil {
		return nil
	}
	if in.Home.AvgPoints == nil || in.Home.AvgPointsAllowed == nil ||
		in.Away.AvgPoints == nil || in.Away.AvgPointsAllowed == nil {
		return nil
	}

	projected := (*in.Home.AvgPoints + *in.Home.AvgPointsAllowed +
		*in.Away.AvgPoints + *in.Away.AvgPointsAllowed) / 2
	line := *in.Snapshot.Total
	gap := projected - line
	if math.Abs(gap) < 0.3 {
		return nil
	}

	prediction := domain.PredictOver
	if gap < 0 {
		prediction = domain.PredictUnder
	}
	score := clamp01(0.5 + gap/3)
	confidence := clampConfidence(0.5 + math.Abs(gap)/3)
	tier := domain.TierForConfidence(confidence)
	betType := domain.BetTotal

	return &domain.DriverDescriptor{
		CardType:   "nhl-pace-1p",
		CardTitle:  "First Period Pace",
		DriverKey:  "nhl-pace-1p",
		Prediction: prediction,
		Confidence: confidence,
		Tier:       tier,
		Reasoning: fmt.Sprintf("Recent scoring projects %.1f combined goals against a posted total of %.1f.",
			projected, line),
		DriverScore:        &score,
		DriverStatus:       domain.DriverOK,
		DriverInputs:       map[string]any{"projected_total": projected, "posted_total": line},
		RecommendedBetType: &betType,
		EVThresholdPassed:  tier != nil,
	}
}
