package settle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cardline/platform/internal/domain"
)

func iptr(i int) *int         { return &i }
func fptr(f float64) *float64 { return &f }

func finalResult(home, away int) domain.GameResult {
	return domain.GameResult{
		GameID: "game-nba-ev1", HomeScore: home, AwayScore: away,
		Status: domain.GameResultFinal, FinalAt: time.Now().UTC(),
	}
}

func TestUnitProfit(t *testing.T) {
	assert.InDelta(t, 1.5, UnitProfit(150), 0.0001)
	assert.InDelta(t, 0.6667, UnitProfit(-150), 0.0001)
	assert.InDelta(t, 0.9091, UnitProfit(-110), 0.0001)
	assert.InDelta(t, 1.0, UnitProfit(100), 0.0001)
}

func TestGradeMoneyline(t *testing.T) {
	odds := domain.OddsContext{H2HHome: iptr(-150), H2HAway: iptr(130)}

	out, pnl := GradeCard(domain.RecMLHome, finalResult(110, 100), odds)
	assert.Equal(t, domain.OutcomeWin, out)
	assert.InDelta(t, 0.6667, pnl, 0.0001)

	out, pnl = GradeCard(domain.RecMLHome, finalResult(100, 110), odds)
	assert.Equal(t, domain.OutcomeLoss, out)
	assert.Equal(t, -1.0, pnl)

	out, pnl = GradeCard(domain.RecMLAway, finalResult(100, 110), odds)
	assert.Equal(t, domain.OutcomeWin, out)
	assert.InDelta(t, 1.3, pnl, 0.0001)

	out, pnl = GradeCard(domain.RecMLHome, finalResult(3, 3), odds)
	assert.Equal(t, domain.OutcomePush, out)
	assert.Equal(t, 0.0, pnl)
}

func TestGradeMoneylineMissingPriceUsesStandardJuice(t *testing.T) {
	out, pnl := GradeCard(domain.RecMLHome, finalResult(5, 2), domain.OddsContext{})
	assert.Equal(t, domain.OutcomeWin, out)
	assert.InDelta(t, 0.9091, pnl, 0.0001)
}

func TestGradeSpread(t *testing.T) {
	odds := domain.OddsContext{SpreadHome: fptr(-3.5), SpreadAway: fptr(3.5)}

	out, pnl := GradeCard(domain.RecSpreadHome, finalResult(110, 100), odds)
	assert.Equal(t, domain.OutcomeWin, out)
	assert.InDelta(t, 0.9091, pnl, 0.0001)

	out, _ = GradeCard(domain.RecSpreadHome, finalResult(103, 100), odds)
	assert.Equal(t, domain.OutcomeLoss, out)

	out, _ = GradeCard(domain.RecSpreadAway, finalResult(103, 100), odds)
	assert.Equal(t, domain.OutcomeWin, out)

	// Whole-number line landing exactly pushes.
	whole := domain.OddsContext{SpreadHome: fptr(-3)}
	out, pnl = GradeCard(domain.RecSpreadHome, finalResult(103, 100), whole)
	assert.Equal(t, domain.OutcomePush, out)
	assert.Equal(t, 0.0, pnl)
}

func TestGradeTotal(t *testing.T) {
	odds := domain.OddsContext{Total: fptr(224.5)}

	out, pnl := GradeCard(domain.RecTotalOver, finalResult(115, 112), odds)
	assert.Equal(t, domain.OutcomeWin, out)
	assert.InDelta(t, 0.9091, pnl, 0.0001)

	out, _ = GradeCard(domain.RecTotalUnder, finalResult(115, 112), odds)
	assert.Equal(t, domain.OutcomeLoss, out)

	exact := domain.OddsContext{Total: fptr(227)}
	out, pnl = GradeCard(domain.RecTotalOver, finalResult(115, 112), exact)
	assert.Equal(t, domain.OutcomePush, out)
	assert.Equal(t, 0.0, pnl)

	out, pnl = GradeCard(domain.RecTotalOver, finalResult(115, 112), domain.OddsContext{})
	assert.Equal(t, domain.OutcomeVoid, out)
	assert.Equal(t, 0.0, pnl)
}

func TestGradeCancelledGameVoids(t *testing.T) {
	cancelled := domain.GameResult{GameID: "game-nhl-x", Status: domain.GameResultCancelled}
	odds := domain.OddsContext{H2HHome: iptr(-200)}

	out, pnl := GradeCard(domain.RecMLHome, cancelled, odds)
	assert.Equal(t, domain.OutcomeVoid, out)
	assert.Equal(t, 0.0, pnl)
}

func TestGradePassVoids(t *testing.T) {
	out, pnl := GradeCard(domain.RecPass, finalResult(4, 2), domain.OddsContext{})
	assert.Equal(t, domain.OutcomeVoid, out)
	assert.Equal(t, 0.0, pnl)
}
