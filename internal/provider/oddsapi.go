package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cardline/platform/internal/domain"
)

// ── Odds API wire types ──

type oddsEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	SportTitle   string          `json:"sport_title"`
	CommenceTime string          `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []oddsBookmaker `json:"bookmakers"`
}

type oddsBookmaker struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate string       `json:"last_update"`
	Markets    []oddsMarket `json:"markets"`
}

type oddsMarket struct {
	Key        string        `json:"key"`
	LastUpdate string        `json:"last_update"`
	Outcomes   []oddsOutcome `json:"outcomes"`
}

type oddsOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// bookmakerPrecedence is the fixed alias-resolution order: the first book
// in this list carrying a market supplies its lines.
var bookmakerPrecedence = []string{"pinnacle", "draftkings", "fanduel", "betmgm"}

// sportToOddsKey maps our sport enum to The Odds API sport keys.
var sportToOddsKey = map[domain.Sport]string{
	domain.SportNHL:    "icehockey_nhl",
	domain.SportNBA:    "basketball_nba",
	domain.SportNCAAM:  "basketball_ncaab",
	domain.SportMLB:    "baseball_mlb",
	domain.SportNFL:    "americanfootball_nfl",
	domain.SportSoccer: "soccer_epl",
	domain.SportFPL:    "soccer_epl",
}

// OddsSportKey returns The Odds API key for a sport.
func OddsSportKey(sport domain.Sport) string {
	return sportToOddsKey[sport]
}

// CanonicalGame is the normalized game+odds record produced by a fetch.
type CanonicalGame struct {
	GameID        string
	Sport         domain.Sport
	HomeTeam      string
	AwayTeam      string
	GameTimeUTC   time.Time
	CapturedAtUTC time.Time
	MoneylineHome *int
	MoneylineAway *int
	Total         *float64
	SpreadHome    *float64
	SpreadAway    *float64
	Raw           json.RawMessage
}

// FetchResult is the outcome of one per-sport odds fetch.
type FetchResult struct {
	Games                []CanonicalGame
	Errors               []string
	RawCount             int
	SkippedMissingFields int
}

// OddsClient fetches and normalizes bookmaker odds from The Odds API.
// It never touches the store.
type OddsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewOddsClient creates an Odds API client.
func NewOddsClient(baseURL, apiKey string, logger *slog.Logger) *OddsClient {
	return &OddsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *OddsClient) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path
	if strings.Contains(path, "?") {
		url += "&apiKey=" + c.apiKey
	} else {
		url += "?apiKey=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	remaining := resp.Header.Get("x-requests-remaining")
	c.logger.Debug("odds api request", "path", path, "status", resp.StatusCode, "remaining", remaining)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("odds api quota exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("odds api returned %d: %s", resp.StatusCode, string(body[:min(200, len(body))]))
	}
	return body, nil
}

// FetchOdds pulls current odds for one sport and normalizes them into
// canonical game records within the horizon. Games are returned in
// provider order; identity de-duplication is left to the store upsert.
func (c *OddsClient) FetchOdds(ctx context.Context, sport domain.Sport, horizonHours int) (*FetchResult, error) {
	sportKey, ok := sportToOddsKey[sport]
	if !ok {
		return nil, fmt.Errorf("no odds api key mapping for sport %s", sport)
	}

	path := fmt.Sprintf("/v4/sports/%s/odds/?regions=us&markets=h2h,spreads,totals&oddsFormat=american&dateFormat=iso", sportKey)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch odds for %s: %w", sport, err)
	}

	var events []oddsEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode odds events: %w", err)
	}

	now := time.Now().UTC()
	horizonEnd := now.Add(time.Duration(horizonHours) * time.Hour)
	result := &FetchResult{RawCount: len(events)}

	for _, ev := range events {
		game, err := c.normalizeEvent(sport, ev, now)
		if err != nil {
			result.SkippedMissingFields++
			c.logger.Warn("skipping event with missing fields", "sport", sport, "event_id", ev.ID, "error", err)
			continue
		}
		if game.GameTimeUTC.Before(now.Add(-time.Hour)) || game.GameTimeUTC.After(horizonEnd) {
			continue
		}
		result.Games = append(result.Games, *game)
	}
	return result, nil
}

// normalizeEvent gates required fields and resolves market lines using the
// fixed bookmaker precedence list.
func (c *OddsClient) normalizeEvent(sport domain.Sport, ev oddsEvent, capturedAt time.Time) (*CanonicalGame, error) {
	if ev.ID == "" {
		return nil, fmt.Errorf("missing event id")
	}
	if ev.HomeTeam == "" || ev.AwayTeam == "" {
		return nil, fmt.Errorf("missing team names")
	}
	gameTime, err := time.Parse(time.RFC3339, ev.CommenceTime)
	if err != nil {
		return nil, fmt.Errorf("parse commence_time %q: %w", ev.CommenceTime, err)
	}

	raw, _ := json.Marshal(ev)
	game := &CanonicalGame{
		GameID:        ev.ID,
		Sport:         sport,
		HomeTeam:      ev.HomeTeam,
		AwayTeam:      ev.AwayTeam,
		GameTimeUTC:   gameTime.UTC(),
		CapturedAtUTC: capturedAt,
		Raw:           raw,
	}

	for _, marketKey := range []string{"h2h", "spreads", "totals"} {
		mkt := pickMarket(ev.Bookmakers, marketKey)
		if mkt == nil {
			continue
		}
		switch marketKey {
		case "h2h":
			for _, o := range mkt.Outcomes {
				price := int(o.Price)
				switch o.Name {
				case ev.HomeTeam:
					game.MoneylineHome = &price
				case ev.AwayTeam:
					game.MoneylineAway = &price
				}
			}
		case "spreads":
			for _, o := range mkt.Outcomes {
				if o.Point == nil {
					continue
				}
				point := *o.Point
				switch o.Name {
				case ev.HomeTeam:
					game.SpreadHome = &point
				case ev.AwayTeam:
					game.SpreadAway = &point
				}
			}
		case "totals":
			for _, o := range mkt.Outcomes {
				if o.Point != nil {
					point := *o.Point
					game.Total = &point
					break
				}
			}
		}
	}
	return game, nil
}

// pickMarket returns the named market from the highest-precedence bookmaker
// that carries it, falling back to provider order.
func pickMarket(books []oddsBookmaker, marketKey string) *oddsMarket {
	for _, preferred := range bookmakerPrecedence {
		for _, bk := range books {
			if bk.Key != preferred {
				continue
			}
			for i := range bk.Markets {
				if bk.Markets[i].Key == marketKey {
					return &bk.Markets[i]
				}
			}
		}
	}
	for _, bk := range books {
		for i := range bk.Markets {
			if bk.Markets[i].Key == marketKey {
				return &bk.Markets[i]
			}
		}
	}
	return nil
}
