package card

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/infra"
	"github.com/cardline/platform/internal/repository"
)

const disclaimer = "For entertainment and informational purposes only. Not betting advice."

// WriteRequest carries everything the writer needs for one card.
type WriteRequest struct {
	Game         domain.Game
	Snapshot     *domain.OddsSnapshot
	Descriptor   domain.DriverDescriptor
	ModelVersion string
	WindowKey    string
	JobRunID     string
}

// Writer is the single write path into card_payloads. It builds the
// canonical payload envelope, validates it against the card-type schema
// and persists model output, card and pending ledger row atomically.
type Writer struct {
	store  *infra.Store
	cards  repository.CardRepository
	loc    *time.Location
	logger *slog.Logger
}

func NewWriter(store *infra.Store, cards repository.CardRepository, loc *time.Location, logger *slog.Logger) *Writer {
	return &Writer{store: store, cards: cards, loc: loc, logger: logger}
}

// Write persists one card from a driver descriptor. Returns true when a
// new card row was created, false when the descriptor abstained or a
// card for this (game, card_type, model_version, window) already exists.
func (w *Writer) Write(ctx context.Context, req WriteRequest) (bool, error) {
	desc := req.Descriptor
	// Neutral descriptors never become cards.
	if desc.Prediction == domain.PredictNeutral || desc.RecommendedBetType == nil {
		return false, nil
	}

	now := time.Now().UTC()
	body := w.buildBody(req, now)
	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshal card body: %w", err)
	}
	if err := ValidateBody(desc.CardType, payload); err != nil {
		return false, err
	}

	outputBlob, err := json.Marshal(desc)
	if err != nil {
		return false, fmt.Errorf("marshal driver output: %w", err)
	}

	output := &domain.ModelOutput{
		ID:             uuid.NewString(),
		GameID:         req.Game.ID,
		ModelName:      desc.DriverKey,
		ModelVersion:   req.ModelVersion,
		PredictionType: string(desc.Prediction),
		PredictedAt:    now,
		Confidence:     desc.Confidence,
		Output:         outputBlob,
	}
	if req.Snapshot != nil {
		output.OddsSnapshotID = &req.Snapshot.ID
	}
	if req.JobRunID != "" {
		output.JobRunID = &req.JobRunID
	}

	cardRow := &domain.CardPayload{
		ID:             uuid.NewString(),
		GameID:         req.Game.ID,
		Sport:          req.Game.Sport,
		CardType:       desc.CardType,
		CardTitle:      desc.CardTitle,
		SchemaVersion:  domain.CardSchemaVersion,
		WindowKey:      req.WindowKey,
		CreatedAt:      now,
		ExpiresAt:      cardExpiry(now, req.Game.GameTimeUTC),
		PayloadData:    payload,
		ModelOutputIDs: []string{output.ID},
		ModelVersion:   req.ModelVersion,
	}

	var created bool
	err = w.store.WriteTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		created, txErr = w.cards.PrepareModelAndCardWrite(ctx, tx, repository.PrepareCardParams{
			Output:  output,
			Card:    cardRow,
			BetType: desc.RecommendedBetType,
		})
		return txErr
	})
	if err != nil {
		return false, fmt.Errorf("write card %s for %s: %w", desc.CardType, req.Game.ID, err)
	}
	if !created {
		w.logger.Debug("card already exists for window",
			"game_id", req.Game.ID, "card_type", desc.CardType, "window_key", req.WindowKey)
	}
	return created, nil
}

// buildBody assembles the canonical payload envelope.
func (w *Writer) buildBody(req WriteRequest, now time.Time) domain.CardBody {
	g := req.Game
	desc := req.Descriptor

	body := domain.CardBody{
		GameID:             g.ID,
		Sport:              g.Sport,
		ModelVersion:       req.ModelVersion,
		HomeTeam:           g.HomeTeam,
		AwayTeam:           g.AwayTeam,
		Matchup:            fmt.Sprintf("%s @ %s", g.AwayTeam, g.HomeTeam),
		StartTimeUTC:       g.GameTimeUTC,
		StartTimeLocal:     g.GameTimeUTC.In(w.loc).Format("Mon Jan 2 3:04 PM"),
		Timezone:           w.loc.String(),
		Countdown:          countdown(now, g.GameTimeUTC),
		Recommendation:     buildRecommendation(g, desc),
		Projection:         buildProjection(desc),
		ConfidencePct:      int(desc.Confidence*100 + 0.5),
		DriversActive:      []string{desc.DriverKey},
		Prediction:         desc.Prediction,
		Confidence:         desc.Confidence,
		RecommendedBetType: desc.RecommendedBetType,
		Tier:               desc.Tier,
		Reasoning:          desc.Reasoning,
		EVPassed:           desc.EVThresholdPassed,
		Disclaimer:         disclaimer,
		GeneratedAt:        now,
		Driver: domain.DriverBlock{
			Key:    desc.DriverKey,
			Score:  desc.DriverScore,
			Status: desc.DriverStatus,
			Inputs: desc.DriverInputs,
		},
		DriverSummary: buildDriverSummary(desc),
		Meta: domain.CardMeta{
			InferenceSource: desc.DriverKey,
			IsMock:          desc.IsMock,
		},
	}

	if snap := req.Snapshot; snap != nil {
		body.Market = domain.MarketSnapshot{
			H2HHome:    snap.MoneylineHome,
			H2HAway:    snap.MoneylineAway,
			Total:      snap.Total,
			SpreadHome: snap.SpreadHome,
			SpreadAway: snap.SpreadAway,
		}
		body.OddsContext = domain.OddsContext{
			H2HHome:    snap.MoneylineHome,
			H2HAway:    snap.MoneylineAway,
			SpreadHome: snap.SpreadHome,
			SpreadAway: snap.SpreadAway,
			Total:      snap.Total,
			CapturedAt: snap.CapturedAt,
		}
	} else {
		body.OddsContext = domain.OddsContext{CapturedAt: now}
	}
	return body
}

// buildRecommendation maps a driver lean onto the settleable market.
func buildRecommendation(g domain.Game, desc domain.DriverDescriptor) domain.Recommendation {
	if desc.RecommendedBetType == nil {
		return domain.Recommendation{Type: domain.RecPass, Text: "No bet", PassReason: "no recommended market"}
	}

	switch *desc.RecommendedBetType {
	case domain.BetMoneyline:
		if desc.Prediction == domain.PredictHome {
			return domain.Recommendation{Type: domain.RecMLHome, Text: g.HomeTeam + " ML"}
		}
		if desc.Prediction == domain.PredictAway {
			return domain.Recommendation{Type: domain.RecMLAway, Text: g.AwayTeam + " ML"}
		}
	case domain.BetSpread:
		if desc.Prediction == domain.PredictHome {
			return domain.Recommendation{Type: domain.RecSpreadHome, Text: g.HomeTeam + " spread"}
		}
		if desc.Prediction == domain.PredictAway {
			return domain.Recommendation{Type: domain.RecSpreadAway, Text: g.AwayTeam + " spread"}
		}
	case domain.BetTotal:
		if desc.Prediction == domain.PredictOver {
			return domain.Recommendation{Type: domain.RecTotalOver, Text: "Over"}
		}
		if desc.Prediction == domain.PredictUnder {
			return domain.Recommendation{Type: domain.RecTotalUnder, Text: "Under"}
		}
	}
	return domain.Recommendation{Type: domain.RecPass, Text: "No bet", PassReason: "prediction does not map to market"}
}

func buildProjection(desc domain.DriverDescriptor) domain.Projection {
	var p domain.Projection
	if v, ok := desc.DriverInputs["projected_total"].(float64); ok {
		p.Total = &v
	}
	if desc.DriverScore != nil && (desc.Prediction == domain.PredictHome || desc.Prediction == domain.PredictAway) {
		wp := *desc.DriverScore
		p.WinProbHome = &wp
	}
	return p
}

func buildDriverSummary(desc domain.DriverDescriptor) domain.DriverSummary {
	s := domain.DriverSummary{
		Weights: []domain.DriverWeight{{
			Driver: desc.DriverKey,
			Weight: 1.0,
			Score:  desc.DriverScore,
			Impact: desc.Confidence - 0.5,
			Status: string(desc.DriverStatus),
		}},
	}
	if desc.DriverStatus == domain.DriverDegraded {
		s.ImpactNote = "one or more input signals unavailable"
	}
	return s
}

// cardExpiry returns the usual expiry of one hour before start. A card
// written inside that final hour stays servable until the game starts;
// once the game has started there is nothing left to expire.
func cardExpiry(now, start time.Time) *time.Time {
	e := start.Add(-time.Hour)
	if e.After(now) {
		return &e
	}
	if start.After(now) {
		return &start
	}
	return nil
}

// countdown renders time-to-start as "2h 15m" style text.
func countdown(now, start time.Time) string {
	d := start.Sub(now)
	if d <= 0 {
		return "Started"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
