package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/infra"
	"github.com/cardline/platform/internal/repository"
)

const gamesListCap = 200

// API bundles the read-only handlers over the analytics store.
type API struct {
	store    *infra.Store
	games    repository.GameRepository
	odds     repository.OddsRepository
	cards    repository.CardRepository
	results  repository.ResultRepository
	tracking repository.TrackingRepository
	loc      *time.Location
	logger   *slog.Logger
}

func NewAPI(
	store *infra.Store,
	games repository.GameRepository,
	odds repository.OddsRepository,
	cards repository.CardRepository,
	results repository.ResultRepository,
	tracking repository.TrackingRepository,
	loc *time.Location,
	logger *slog.Logger,
) *API {
	return &API{
		store: store, games: games, odds: odds, cards: cards,
		results: results, tracking: tracking, loc: loc, logger: logger,
	}
}

// gameView is one /games row: the game joined with its latest market
// and active cards.
type gameView struct {
	domain.Game
	LatestOdds *domain.OddsSnapshot `json:"latest_odds,omitempty"`
	Cards      []cardView           `json:"cards"`
}

// cardView flattens a card payload for the read API.
type cardView struct {
	ID            string          `json:"id"`
	CardType      string          `json:"card_type"`
	CardTitle     string          `json:"card_title"`
	SchemaVersion int             `json:"schema_version"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	ModelVersion  string          `json:"model_version"`
	Payload       json.RawMessage `json:"payload"`
}

func toCardView(c domain.CardPayload) cardView {
	return cardView{
		ID:            c.ID,
		CardType:      c.CardType,
		CardTitle:     c.CardTitle,
		SchemaVersion: c.SchemaVersion,
		CreatedAt:     c.CreatedAt,
		ExpiresAt:     c.ExpiresAt,
		ModelVersion:  c.ModelVersion,
		Payload:       c.PayloadData,
	}
}

// ListGames handles GET /games: today's and upcoming games with their
// latest odds and active cards, ascending by start time.
func (a *API) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()
	local := now.In(a.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc).UTC()

	games, err := a.games.ListFrom(ctx, a.store.DB(), dayStart, gamesListCap)
	if err != nil {
		a.logger.Error("list games failed", "error", err)
		RespondError(w, err)
		return
	}

	activeCards, err := a.cards.ListActiveSince(ctx, a.store.DB(), dayStart, now)
	if err != nil {
		a.logger.Error("list active cards failed", "error", err)
		RespondError(w, err)
		return
	}
	cardsByGame := make(map[string][]cardView)
	for _, c := range activeCards {
		cardsByGame[c.GameID] = append(cardsByGame[c.GameID], toCardView(c))
	}

	views := make([]gameView, 0, len(games))
	for _, g := range games {
		snap, err := a.odds.LatestByGame(ctx, a.store.DB(), g.ID)
		if err != nil {
			a.logger.Error("latest odds lookup failed", "game_id", g.ID, "error", err)
			RespondError(w, err)
			return
		}
		cards := cardsByGame[g.ID]
		if cards == nil {
			cards = []cardView{}
		}
		views = append(views, gameView{Game: g, LatestOdds: snap, Cards: cards})
	}

	RespondJSON(w, http.StatusOK, map[string]any{"success": true, "data": views})
}

// GetCards handles GET /cards/{gameId}: non-expired cards for one game.
// Query params: cardType filter, dedup=latest_per_game_type|none.
func (a *API) GetCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID := chi.URLParam(r, "gameId")
	if gameID == "" {
		RespondError(w, domain.ErrValidation("gameId is required"))
		return
	}

	game, err := a.games.FindByID(ctx, a.store.DB(), gameID)
	if err != nil {
		RespondError(w, err)
		return
	}
	if game == nil {
		RespondError(w, domain.ErrNotFound("game", gameID))
		return
	}

	cardType := r.URL.Query().Get("cardType")
	cards, err := a.cards.ListActiveByGame(ctx, a.store.DB(), gameID, cardType, time.Now().UTC())
	if err != nil {
		a.logger.Error("list cards failed", "game_id", gameID, "error", err)
		RespondError(w, err)
		return
	}

	if r.URL.Query().Get("dedup") != "none" {
		cards = latestPerCardType(cards)
	}

	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, toCardView(c))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"success": true, "data": views})
}

// latestPerCardType keeps the newest card per card_type. Input is
// ordered newest first.
func latestPerCardType(cards []domain.CardPayload) []domain.CardPayload {
	seen := make(map[string]bool, len(cards))
	out := make([]domain.CardPayload, 0, len(cards))
	for _, c := range cards {
		if seen[c.CardType] {
			continue
		}
		seen[c.CardType] = true
		out = append(out, c)
	}
	return out
}
