package card

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardline/platform/internal/domain"
)

func testGame() domain.Game {
	return domain.Game{
		ID:             "game-nba-ev1",
		Sport:          domain.SportNBA,
		ProviderGameID: "ev1",
		HomeTeam:       "Boston Celtics",
		AwayTeam:       "New York Knicks",
		GameTimeUTC:    time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC),
		Status:         domain.GameScheduled,
	}
}

func testDescriptor() domain.DriverDescriptor {
	score := 0.68
	tier := domain.TierWatch
	bet := domain.BetMoneyline
	return domain.DriverDescriptor{
		CardType:           "nba-composite",
		CardTitle:          "NBA Composite Edge",
		DriverKey:          "nba-composite",
		Prediction:         domain.PredictHome,
		Confidence:         0.68,
		Tier:               &tier,
		Reasoning:          "Weighted signals lean home side, led by market.",
		DriverScore:        &score,
		DriverStatus:       domain.DriverOK,
		DriverInputs:       map[string]any{"market": 0.62},
		RecommendedBetType: &bet,
		EVThresholdPassed:  true,
	}
}

func testWriter() *Writer {
	loc, _ := time.LoadLocation("America/New_York")
	return &Writer{loc: loc}
}

func TestBuildBodyEnvelope(t *testing.T) {
	w := testWriter()
	ml := -150
	mlAway := 130
	total := 224.5
	snap := &domain.OddsSnapshot{
		ID:            "snap-1",
		GameID:        "game-nba-ev1",
		CapturedAt:    time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC),
		MoneylineHome: &ml,
		MoneylineAway: &mlAway,
		Total:         &total,
	}
	now := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)

	body := w.buildBody(WriteRequest{
		Game:         testGame(),
		Snapshot:     snap,
		Descriptor:   testDescriptor(),
		ModelVersion: "nba-v2",
		WindowKey:    "nba|fixed|2026-03-09|1200",
	}, now)

	assert.Equal(t, "New York Knicks @ Boston Celtics", body.Matchup)
	assert.Equal(t, "America/New_York", body.Timezone)
	assert.Equal(t, "2h 30m", body.Countdown)
	assert.Equal(t, domain.RecMLHome, body.Recommendation.Type)
	assert.Equal(t, "Boston Celtics ML", body.Recommendation.Text)
	assert.Equal(t, 68, body.ConfidencePct)
	require.NotNil(t, body.Market.H2HHome)
	assert.Equal(t, -150, *body.Market.H2HHome)
	assert.Equal(t, snap.CapturedAt, body.OddsContext.CapturedAt)
	assert.Equal(t, []string{"nba-composite"}, body.DriversActive)

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, ValidateBody("nba-composite", payload))
}

func TestRecommendationMapping(t *testing.T) {
	g := testGame()
	bet := func(b domain.BetType) *domain.BetType { return &b }

	tests := []struct {
		prediction domain.Prediction
		betType    *domain.BetType
		want       domain.RecommendationType
	}{
		{domain.PredictHome, bet(domain.BetMoneyline), domain.RecMLHome},
		{domain.PredictAway, bet(domain.BetMoneyline), domain.RecMLAway},
		{domain.PredictHome, bet(domain.BetSpread), domain.RecSpreadHome},
		{domain.PredictAway, bet(domain.BetSpread), domain.RecSpreadAway},
		{domain.PredictOver, bet(domain.BetTotal), domain.RecTotalOver},
		{domain.PredictUnder, bet(domain.BetTotal), domain.RecTotalUnder},
		{domain.PredictHome, nil, domain.RecPass},
		{domain.PredictOver, bet(domain.BetMoneyline), domain.RecPass},
	}
	for _, tt := range tests {
		desc := testDescriptor()
		desc.Prediction = tt.prediction
		desc.RecommendedBetType = tt.betType
		rec := buildRecommendation(g, desc)
		assert.Equal(t, tt.want, rec.Type)
		if tt.want == domain.RecPass {
			assert.NotEmpty(t, rec.PassReason)
		}
	}
}

func TestValidateBodyRejectsUnknownCardType(t *testing.T) {
	err := ValidateBody("mystery-card", []byte(`{}`))
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestValidateBodyRejectsMissingRequiredField(t *testing.T) {
	w := testWriter()
	body := w.buildBody(WriteRequest{
		Game:         testGame(),
		Descriptor:   testDescriptor(),
		ModelVersion: "nba-v2",
		WindowKey:    "odds|hourly|2026-03-09|18",
	}, time.Now().UTC())
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	delete(m, "reasoning")
	broken, _ := json.Marshal(m)

	err = ValidateBody("nba-composite", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reasoning")
}

func TestValidateBodyRejectsOutOfRangeConfidence(t *testing.T) {
	w := testWriter()
	body := w.buildBody(WriteRequest{
		Game:         testGame(),
		Descriptor:   testDescriptor(),
		ModelVersion: "nba-v2",
		WindowKey:    "odds|hourly|2026-03-09|18",
	}, time.Now().UTC())
	payload, _ := json.Marshal(body)

	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	m["confidence"] = 1.7
	broken, _ := json.Marshal(m)

	err := ValidateBody("nba-composite", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

func TestWriteRejectsUnmarshalableDriverInputs(t *testing.T) {
	w := testWriter()
	desc := testDescriptor()
	desc.DriverInputs = map[string]any{"bad": make(chan int)}

	created, err := w.Write(context.Background(), WriteRequest{
		Game:         testGame(),
		Descriptor:   desc,
		ModelVersion: "nba-v2",
		WindowKey:    "nba|fixed|2026-03-09|1200",
	})
	require.Error(t, err)
	assert.False(t, created)
}

func TestCardExpiryNeverPrecedesWrite(t *testing.T) {
	now := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)

	// The normal case: expiry sits one hour before start.
	e := cardExpiry(now, now.Add(5*time.Hour))
	require.NotNil(t, e)
	assert.Equal(t, now.Add(4*time.Hour), *e)
	assert.True(t, e.After(now))

	// Inside the final hour the card must stay servable until start.
	e = cardExpiry(now, now.Add(30*time.Minute))
	require.NotNil(t, e)
	assert.Equal(t, now.Add(30*time.Minute), *e)
	assert.True(t, e.After(now))

	// At or past start nothing is left to expire.
	assert.Nil(t, cardExpiry(now, now))
	assert.Nil(t, cardExpiry(now, now.Add(-time.Minute)))
}

func TestCountdown(t *testing.T) {
	now := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "45m", countdown(now, now.Add(45*time.Minute)))
	assert.Equal(t, "26h 0m", countdown(now, now.Add(26*time.Hour)))
	assert.Equal(t, "Started", countdown(now, now.Add(-time.Minute)))
}
