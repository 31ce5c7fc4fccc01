package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/provider"
)

type fakeStats struct {
	team  *provider.TeamInfo
	games []provider.TeamGame
	err   error
}

func (f *fakeStats) GetTeam(ctx context.Context, teamID int) (*provider.TeamInfo, error) {
	return f.team, f.err
}

func (f *fakeStats) GetRecentGames(ctx context.Context, teamID, limit int) ([]provider.TeamGame, error) {
	return f.games, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLookupTeamID(t *testing.T) {
	tests := []struct {
		name   string
		sport  domain.Sport
		wantID int
		wantOK bool
	}{
		{"Boston Celtics", domain.SportNBA, 2, true},
		{"boston celtics", domain.SportNBA, 2, true},
		{"Celtics", domain.SportNBA, 2, true},
		{"Los Angeles Clippers", domain.SportNBA, 13, true},
		{"St. Louis Blues", domain.SportNHL, 125, true},
		{"Rangers", domain.SportNHL, 119, true},
		{"Nonexistent FC", domain.SportNBA, 0, false},
		{"Boston Celtics", domain.SportMLB, 0, false},
	}
	for _, tt := range tests {
		id, ok := lookupTeamID(tt.name, tt.sport)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		if tt.wantOK {
			assert.Equal(t, tt.wantID, id, tt.name)
		}
	}
}

func TestEnrichNeutralOnUnknownTeam(t *testing.T) {
	e := NewEnricher(&fakeStats{}, testLogger())
	m := e.Enrich(context.Background(), "Unknown Squad", domain.SportNBA)
	assert.Equal(t, "Unknown", m.Form)
	assert.False(t, m.Known())
	assert.Nil(t, m.AvgPoints)
	assert.Nil(t, m.Pace)
}

func TestEnrichNeutralOnFetchError(t *testing.T) {
	e := NewEnricher(&fakeStats{err: errors.New("upstream down")}, testLogger())
	m := e.Enrich(context.Background(), "Boston Celtics", domain.SportNBA)
	assert.False(t, m.Known())
}

func TestEnrichDerivesMetrics(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	rank := 3
	stats := &fakeStats{
		team: &provider.TeamInfo{ID: 2, FullName: "Boston Celtics", Rank: &rank, Record: "40-20"},
		games: []provider.TeamGame{
			{ID: 1, Date: yesterday, HomeTeamID: 2, VisitorTeamID: 5, HomeScore: 110, VisitorScore: 100, Status: "Final"},
			{ID: 2, Date: yesterday, HomeTeamID: 5, VisitorTeamID: 2, HomeScore: 120, VisitorScore: 105, Status: "Final"},
		},
	}
	e := NewEnricher(stats, testLogger())
	m := e.Enrich(context.Background(), "Boston Celtics", domain.SportNBA)

	require.True(t, m.Known())
	require.NotNil(t, m.AvgPoints)
	assert.InDelta(t, 107.5, *m.AvgPoints, 0.001)
	require.NotNil(t, m.AvgPointsAllowed)
	assert.InDelta(t, 110.0, *m.AvgPointsAllowed, 0.001)
	require.NotNil(t, m.NetRating)
	assert.InDelta(t, -2.5, *m.NetRating, 0.001)
	assert.Equal(t, "WL", m.Form)
	require.NotNil(t, m.RestDays)
	assert.Equal(t, 1, *m.RestDays)
	require.NotNil(t, m.Pace)
	assert.InDelta(t, 217.5, *m.Pace, 0.001)
	require.NotNil(t, m.Rank)
	assert.Equal(t, 3, *m.Rank)
	require.NotNil(t, m.Record)
	assert.Equal(t, "40-20", *m.Record)
}

func TestEnrichHockeyOmitsPace(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	stats := &fakeStats{
		team: &provider.TeamInfo{ID: 102, FullName: "Boston Bruins"},
		games: []provider.TeamGame{
			{ID: 1, Date: yesterday, HomeTeamID: 102, VisitorTeamID: 119, HomeScore: 4, VisitorScore: 2, Status: "Final"},
		},
	}
	e := NewEnricher(stats, testLogger())
	m := e.Enrich(context.Background(), "Boston Bruins", domain.SportNHL)
	require.True(t, m.Known())
	assert.Nil(t, m.Pace)
}
