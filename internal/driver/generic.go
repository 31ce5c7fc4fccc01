package driver

import (
	"fmt"

	"github.com/cardline/platform/internal/domain"
)

// genericModule is the composite-only bundle used by the sports without
// bespoke sub-drivers.
type genericModule struct {
	sport   domain.Sport
	title   string
	version string
}

func NewGenericModule(sport domain.Sport, title, version string) Module {
	return genericModule{sport: sport, title: title, version: version}
}

func (g genericModule) Sport() domain.Sport  { return g.sport }
func (g genericModule) ModelVersion() string { return g.version }

func (g genericModule) ComputeDrivers(in Input) []domain.DriverDescriptor {
	market, marketOK := marketSignal(in.Snapshot)
	net, netOK := netRatingSignal(in.Home, in.Away, 10.0)
	form, formOK := formSignal(in.Home, in.Away)
	rest, restOK := restSignal(in.Home, in.Away)

	d := compositeDescriptor(g.sport, g.title, []subScore{
		{key: "market", weight: 0.45, score: market, ok: marketOK},
		{key: "net_rating", weight: 0.25, score: net, ok: netOK},
		{key: "form", weight: 0.15, score: form, ok: formOK},
		{key: "rest", weight: 0.15, score: rest, ok: restOK},
	})
	if d == nil {
		return nil
	}
	return []domain.DriverDescriptor{*d}
}

// restEdge flags a schedule advantage of two or more days. Shared by
// the sports where back-to-backs matter.
func restEdge(sport domain.Sport, in Input) *domain.DriverDescriptor {
	if in.Home.RestDays == nil || in.Away.RestDays == nil {
		return nil
	}
	diff := *in.Home.RestDays - *in.Away.RestDays
	if diff > -2 && diff < 2 {
		return nil
	}

	score := clamp01(0.5 + 0.08*float64(diff))
	prediction := predictionFromScore(score)
	if prediction == domain.PredictNeutral {
		return nil
	}

	confidence := deviationConfidence(score)
	tier := domain.TierForConfidence(confidence)
	betType := domain.BetMoneyline
	rested, tired := *in.Home.RestDays, *in.Away.RestDays
	if prediction == domain.PredictAway {
		rested, tired = tired, rested
	}

	return &domain.DriverDescriptor{
		CardType:   string(sport) + "-rest",
		CardTitle:  "Rest Advantage",
		DriverKey:  string(sport) + "-rest",
		Prediction: prediction,
		Confidence: confidence,
		Tier:       tier,
		Reasoning: fmt.Sprintf("%d days of rest against an opponent on %d; schedule edge is material.",
			rested, tired),
		DriverScore:        &score,
		DriverStatus:       domain.DriverOK,
		DriverInputs:       map[string]any{"home_rest": *in.Home.RestDays, "away_rest": *in.Away.RestDays},
		RecommendedBetType: &betType,
		EVThresholdPassed:  tier != nil,
	}
}
