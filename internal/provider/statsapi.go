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
)

// TeamInfo is the reference record for one team from the stats source.
type TeamInfo struct {
	ID         int    `json:"id"`
	FullName   string `json:"full_name"`
	Conference string `json:"conference"`
	Division   string `json:"division"`
	Rank       *int   `json:"rank,omitempty"`
	Record     string `json:"record,omitempty"`
}

// TeamGame is one completed game from a team's recent schedule.
type TeamGame struct {
	ID            int    `json:"id"`
	Date          string `json:"date"`
	HomeTeamID    int    `json:"home_team_id"`
	VisitorTeamID int    `json:"visitor_team_id"`
	HomeScore     int    `json:"home_team_score"`
	VisitorScore  int    `json:"visitor_team_score"`
	Status        string `json:"status"`
	Possessions   *float64 `json:"possessions,omitempty"`
}

type teamResponse struct {
	Data TeamInfo `json:"data"`
}

type teamGamesResponse struct {
	Data []TeamGame `json:"data"`
}

// StatsClient fetches team reference statistics from the public
// sports-data source.
type StatsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewStatsClient creates a stats source client.
func NewStatsClient(baseURL, apiKey string, logger *slog.Logger) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *StatsClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("stats api returned %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// GetTeam returns the reference record for one team.
func (c *StatsClient) GetTeam(ctx context.Context, teamID int) (*TeamInfo, error) {
	body, err := c.get(ctx, fmt.Sprintf("/teams/%d", teamID))
	if err != nil {
		return nil, fmt.Errorf("fetch team %d: %w", teamID, err)
	}
	var resp teamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode team %d: %w", teamID, err)
	}
	return &resp.Data, nil
}

// GetRecentGames returns a team's most recent completed games, newest
// first, bounded by limit.
func (c *StatsClient) GetRecentGames(ctx context.Context, teamID, limit int) ([]TeamGame, error) {
	endDate := time.Now().UTC().Format("2006-01-02")
	path := fmt.Sprintf("/games?team_ids[]=%d&end_date=%s&per_page=%d", teamID, endDate, limit)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch recent games for team %d: %w", teamID, err)
	}
	var resp teamGamesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode recent games for team %d: %w", teamID, err)
	}

	var out []TeamGame
	for _, g := range resp.Data {
		if strings.EqualFold(g.Status, "final") {
			out = append(out, g)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
