package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/provider"
)

// TeamMetrics is the recent-form record attached to each side of a game.
// A neutral record carries nil fields and Form "Unknown".
type TeamMetrics struct {
	AvgPoints        *float64 `json:"avg_points,omitempty"`
	AvgPointsAllowed *float64 `json:"avg_points_allowed,omitempty"`
	NetRating        *float64 `json:"net_rating,omitempty"`
	RestDays         *int     `json:"rest_days,omitempty"`
	Form             string   `json:"form"`
	Pace             *float64 `json:"pace,omitempty"`
	Rank             *int     `json:"rank,omitempty"`
	Record           *string  `json:"record,omitempty"`
}

// Neutral returns the fallback record used on any enrichment failure.
func Neutral() TeamMetrics {
	return TeamMetrics{Form: "Unknown"}
}

// Known reports whether the record carries real data.
func (m TeamMetrics) Known() bool { return m.Form != "Unknown" }

// StatsSource is the slice of the stats client the enricher needs.
type StatsSource interface {
	GetTeam(ctx context.Context, teamID int) (*provider.TeamInfo, error)
	GetRecentGames(ctx context.Context, teamID, limit int) ([]provider.TeamGame, error)
}

const (
	recentGameWindow = 10
	formWindow       = 5
	// pacingDelay bounds QPS against the external stats source.
	pacingDelay = 200 * time.Millisecond
)

// Enricher resolves team names to external IDs and derives recent-form
// metrics from a bounded schedule window. Safe for concurrent use; the
// pacing gate serializes outbound calls.
type Enricher struct {
	stats  StatsSource
	logger *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewEnricher creates a team metrics enricher.
func NewEnricher(stats StatsSource, logger *slog.Logger) *Enricher {
	return &Enricher{stats: stats, logger: logger}
}

// Enrich returns recent-form metrics for a team. Any failure, unknown
// team, or empty response yields the neutral record.
func (e *Enricher) Enrich(ctx context.Context, teamName string, sport domain.Sport) TeamMetrics {
	teamID, ok := lookupTeamID(teamName, sport)
	if !ok {
		e.logger.Debug("unknown team, using neutral metrics", "team", teamName, "sport", sport)
		return Neutral()
	}

	if err := e.pace(ctx); err != nil {
		return Neutral()
	}
	games, err := e.stats.GetRecentGames(ctx, teamID, recentGameWindow)
	if err != nil || len(games) == 0 {
		if err != nil {
			e.logger.Warn("stats fetch failed, using neutral metrics", "team", teamName, "error", err)
		}
		return Neutral()
	}

	if err := e.pace(ctx); err != nil {
		return Neutral()
	}
	info, err := e.stats.GetTeam(ctx, teamID)
	if err != nil {
		e.logger.Warn("team info fetch failed, using neutral metrics", "team", teamName, "error", err)
		return Neutral()
	}

	return deriveMetrics(teamID, sport, games, info)
}

// pace enforces the inter-call delay, honoring cancellation.
func (e *Enricher) pace(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	wait := pacingDelay - time.Since(e.lastCall)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	e.lastCall = time.Now()
	return nil
}

func deriveMetrics(teamID int, sport domain.Sport, games []provider.TeamGame, info *provider.TeamInfo) TeamMetrics {
	var pointsFor, pointsAgainst, possessions float64
	var possessionCount int
	var form strings.Builder

	for i, g := range games {
		scored, allowed := teamScores(teamID, g)
		pointsFor += scored
		pointsAgainst += allowed
		if g.Possessions != nil {
			possessions += *g.Possessions
			possessionCount++
		}
		if i < formWindow {
			if scored > allowed {
				form.WriteByte('W')
			} else {
				form.WriteByte('L')
			}
		}
	}

	n := float64(len(games))
	avgFor := pointsFor / n
	avgAgainst := pointsAgainst / n
	net := avgFor - avgAgainst

	m := TeamMetrics{
		AvgPoints:        &avgFor,
		AvgPointsAllowed: &avgAgainst,
		NetRating:        &net,
		Form:             form.String(),
	}

	if rest, ok := restDaysSince(games[0].Date); ok {
		m.RestDays = &rest
	}

	// Pace proxy is sport-specific; hockey has none.
	if sport != domain.SportNHL {
		var pace float64
		if possessionCount > 0 {
			pace = possessions / float64(possessionCount)
		} else {
			pace = avgFor + avgAgainst
		}
		m.Pace = &pace
	}

	if info != nil {
		if info.Rank != nil {
			m.Rank = info.Rank
		}
		if info.Record != "" {
			rec := info.Record
			m.Record = &rec
		}
	}
	return m
}

func teamScores(teamID int, g provider.TeamGame) (scored, allowed float64) {
	if g.HomeTeamID == teamID {
		return float64(g.HomeScore), float64(g.VisitorScore)
	}
	return float64(g.VisitorScore), float64(g.HomeScore)
}

func restDaysSince(date string) (int, bool) {
	last, err := time.Parse("2006-01-02", date)
	if err != nil {
		last, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return 0, false
		}
	}
	days := int(time.Since(last).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}
