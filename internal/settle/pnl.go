package settle

import (
	"github.com/cardline/platform/internal/domain"
)

// defaultPrice is the assumed juice when a card carries no captured
// price for its market.
const defaultPrice = -110

// UnitProfit returns the profit on a winning 1-unit stake at an
// American price.
func UnitProfit(price int) float64 {
	if price > 0 {
		return float64(price) / 100
	}
	if price < 0 {
		return 100 / float64(-price)
	}
	return 0
}

func priceOrDefault(p *int) int {
	if p == nil {
		return defaultPrice
	}
	return *p
}

// gradeMoneyline settles an ML_HOME / ML_AWAY card against the final
// score. A tied final pushes.
func gradeMoneyline(rec domain.RecommendationType, homeScore, awayScore int, odds domain.OddsContext) (domain.CardOutcome, float64) {
	if homeScore == awayScore {
		return domain.OutcomePush, 0
	}
	homeWon := homeScore > awayScore
	switch rec {
	case domain.RecMLHome:
		if homeWon {
			return domain.OutcomeWin, UnitProfit(priceOrDefault(odds.H2HHome))
		}
	case domain.RecMLAway:
		if !homeWon {
			return domain.OutcomeWin, UnitProfit(priceOrDefault(odds.H2HAway))
		}
	}
	return domain.OutcomeLoss, -1
}

// gradeSpread settles a SPREAD_HOME / SPREAD_AWAY card. The covered
// margin includes the captured line; landing exactly on it pushes.
// Spread prices default to standard juice.
func gradeSpread(rec domain.RecommendationType, homeScore, awayScore int, odds domain.OddsContext) (domain.CardOutcome, float64) {
	var line float64
	var margin float64
	switch rec {
	case domain.RecSpreadHome:
		if odds.SpreadHome != nil {
			line = *odds.SpreadHome
		}
		margin = float64(homeScore-awayScore) + line
	case domain.RecSpreadAway:
		if odds.SpreadAway != nil {
			line = *odds.SpreadAway
		}
		margin = float64(awayScore-homeScore) + line
	}

	switch {
	case margin > 0:
		return domain.OutcomeWin, UnitProfit(defaultPrice)
	case margin == 0:
		return domain.OutcomePush, 0
	default:
		return domain.OutcomeLoss, -1
	}
}

// gradeTotal settles a TOTAL_OVER / TOTAL_UNDER card against the
// captured total line. A missing line voids: there is nothing to grade
// against.
func gradeTotal(rec domain.RecommendationType, homeScore, awayScore int, odds domain.OddsContext) (domain.CardOutcome, float64) {
	if odds.Total == nil {
		return domain.OutcomeVoid, 0
	}
	combined := float64(homeScore + awayScore)
	line := *odds.Total
	if combined == line {
		return domain.OutcomePush, 0
	}

	over := combined > line
	won := (rec == domain.RecTotalOver && over) || (rec == domain.RecTotalUnder && !over)
	if won {
		return domain.OutcomeWin, UnitProfit(defaultPrice)
	}
	return domain.OutcomeLoss, -1
}

// GradeCard applies the per-market rule for one settleable card.
func GradeCard(rec domain.RecommendationType, result domain.GameResult, odds domain.OddsContext) (domain.CardOutcome, float64) {
	if result.Status == domain.GameResultCancelled {
		return domain.OutcomeVoid, 0
	}

	switch rec {
	case domain.RecMLHome, domain.RecMLAway:
		return gradeMoneyline(rec, result.HomeScore, result.AwayScore, odds)
	case domain.RecSpreadHome, domain.RecSpreadAway:
		return gradeSpread(rec, result.HomeScore, result.AwayScore, odds)
	case domain.RecTotalOver, domain.RecTotalUnder:
		return gradeTotal(rec, result.HomeScore, result.AwayScore, odds)
	default:
		// PASS and anything unrecognized settles void.
		return domain.OutcomeVoid, 0
	}
}
