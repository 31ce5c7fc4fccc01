package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cardline/platform/internal/domain"
)

// EventScore is one scoreboard row from The Odds API scores endpoint.
type EventScore struct {
	ID        string `json:"id"`
	SportKey  string `json:"sport_key"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	Completed bool   `json:"completed"`
	Scores    []struct {
		Name  string `json:"name"`
		Score string `json:"score"`
	} `json:"scores"`
}

// FinalScores extracts integer home/away scores, matching by team name.
func (e *EventScore) FinalScores() (home, away int, ok bool) {
	var haveHome, haveAway bool
	for _, s := range e.Scores {
		n, err := strconv.Atoi(s.Score)
		if err != nil {
			continue
		}
		switch s.Name {
		case e.HomeTeam:
			home, haveHome = n, true
		case e.AwayTeam:
			away, haveAway = n, true
		}
	}
	return home, away, haveHome && haveAway
}

// FetchScores pulls the recent scoreboard for one sport. Events absent from
// the response are simply not returned; callers leave them unresolved.
func (c *OddsClient) FetchScores(ctx context.Context, sport domain.Sport, daysFrom int) ([]EventScore, error) {
	sportKey, ok := sportToOddsKey[sport]
	if !ok {
		return nil, fmt.Errorf("no odds api key mapping for sport %s", sport)
	}

	path := fmt.Sprintf("/v4/sports/%s/scores/?daysFrom=%d", sportKey, daysFrom)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch scores for %s: %w", sport, err)
	}

	var scores []EventScore
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return scores, nil
}
