package scheduler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/infra"
	"github.com/cardline/platform/internal/job"
	"github.com/cardline/platform/internal/repository"
)

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestHourlyOddsKey(t *testing.T) {
	loc := nyLoc(t)
	// 18:00 UTC on 2026-02-27 is 13:00 in New York.
	now := time.Date(2026, 2, 27, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "odds|hourly|2026-02-27|13", HourlyOddsKey(now, loc))
	assert.Equal(t, "settle|hourly|2026-02-27|13", SettleKey(now, loc))
}

func TestTMinusBoundaryAtTarget(t *testing.T) {
	game := domain.Game{
		Sport:          domain.SportNHL,
		ProviderGameID: "ev9",
		GameTimeUTC:    time.Date(2026, 2, 27, 20, 0, 0, 0, time.UTC),
	}

	// Exactly 120 minutes out: the 120 band is due.
	keys := TMinusKeys(game, time.Date(2026, 2, 27, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"nhl|tminus|ev9|120"}, keys)

	// 126 minutes out: outside tolerance, nothing due.
	keys = TMinusKeys(game, time.Date(2026, 2, 27, 17, 54, 0, 0, time.UTC))
	assert.Empty(t, keys)

	// 125 minutes out: closed lower bound, still due.
	keys = TMinusKeys(game, time.Date(2026, 2, 27, 17, 55, 0, 0, time.UTC))
	assert.Equal(t, []string{"nhl|tminus|ev9|120"}, keys)

	// 119 minutes out: past the 120 target, next band not yet due.
	keys = TMinusKeys(game, time.Date(2026, 2, 27, 18, 1, 0, 0, time.UTC))
	assert.Empty(t, keys)

	// 30 minutes out: the final band.
	keys = TMinusKeys(game, time.Date(2026, 2, 27, 19, 30, 0, 0, time.UTC))
	assert.Equal(t, []string{"nhl|tminus|ev9|30"}, keys)
}

func TestFixedWindowKeysWithCatchup(t *testing.T) {
	loc := nyLoc(t)
	// 14:30 ET: both daily windows have passed.
	now := time.Date(2026, 2, 27, 19, 30, 0, 0, time.UTC)
	keys := FixedWindowKeys(domain.SportNBA, now, loc, true, time.Minute)
	assert.Equal(t, []string{
		"nba|fixed|2026-02-27|0900",
		"nba|fixed|2026-02-27|1200",
	}, keys)

	// 08:00 ET: neither window reached yet.
	early := time.Date(2026, 2, 27, 13, 0, 0, 0, time.UTC)
	assert.Empty(t, FixedWindowKeys(domain.SportNBA, early, loc, true, time.Minute))
}

func TestFixedWindowCatchupOff(t *testing.T) {
	loc := nyLoc(t)
	tick := time.Minute

	// 09:01 ET, within two tick periods of the 09:00 target.
	at0901 := time.Date(2026, 2, 27, 14, 1, 0, 0, time.UTC)
	keys := FixedWindowKeys(domain.SportNBA, at0901, loc, false, tick)
	assert.Equal(t, []string{"nba|fixed|2026-02-27|0900"}, keys)

	// 09:03 ET, beyond two tick periods: stale, not due.
	at0903 := time.Date(2026, 2, 27, 14, 3, 0, 0, time.UTC)
	assert.Empty(t, FixedWindowKeys(domain.SportNBA, at0903, loc, false, tick))

	// Next day, the old window never reappears.
	nextDay := time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC)
	for _, k := range FixedWindowKeys(domain.SportNBA, nextDay, loc, false, tick) {
		assert.NotContains(t, k, "2026-02-27")
	}
}

// --- tick collection ---

type fakeStore struct{}

func (fakeStore) DB() *sql.DB { return nil }
func (fakeStore) WriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type fakeGames struct{ games []domain.Game }

func (f *fakeGames) Upsert(ctx context.Context, db repository.DBTX, g *domain.Game) error { return nil }
func (f *fakeGames) FindByID(ctx context.Context, db repository.DBTX, id string) (*domain.Game, error) {
	return nil, nil
}
func (f *fakeGames) ListUpcoming(ctx context.Context, db repository.DBTX, sports []domain.Sport, from, to time.Time) ([]domain.Game, error) {
	return f.games, nil
}
func (f *fakeGames) ListFrom(ctx context.Context, db repository.DBTX, from time.Time, limit int) ([]domain.Game, error) {
	return f.games, nil
}
func (f *fakeGames) UngradedStartedBefore(ctx context.Context, db repository.DBTX, cutoff time.Time) ([]domain.Game, error) {
	return nil, nil
}

type recordingRunner struct {
	name string
	keys []string
}

func (r *recordingRunner) Name() string { return r.name }
func (r *recordingRunner) Run(ctx context.Context, opts job.Options) (*job.Result, error) {
	r.keys = append(r.keys, opts.JobKey)
	return &job.Result{Success: true}, nil
}

func TestTickDispatchesDueCandidatesOnce(t *testing.T) {
	cfg := &infra.Config{
		Timezone:       "America/New_York",
		TickMs:         60000,
		FixedCatchup:   true,
		EnableOddsPull: true,
		EnableNHLModel: true,
	}

	start := time.Now().UTC().Add(118 * time.Minute)
	games := &fakeGames{games: []domain.Game{
		{ID: "game-nhl-ev9", Sport: domain.SportNHL, ProviderGameID: "ev9", GameTimeUTC: start},
		// Same game twice would collapse to one key per band.
		{ID: "game-nhl-ev9", Sport: domain.SportNHL, ProviderGameID: "ev9", GameTimeUTC: start},
	}}

	odds := &recordingRunner{name: "pull_odds_hourly"}
	settle := &recordingRunner{name: "settle_results"}
	nhl := &recordingRunner{name: "run_nhl_model"}

	s := New(cfg, fakeStore{}, games, odds, settle,
		map[domain.Sport]job.Runner{domain.SportNHL: nhl},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.tick(context.Background())

	require.Len(t, odds.keys, 1)
	assert.Contains(t, odds.keys[0], "odds|hourly|")
	require.Len(t, settle.keys, 1)
	assert.Contains(t, settle.keys[0], "settle|hourly|")

	// The duplicate game contributes its T-minus key exactly once.
	tminus := 0
	for _, k := range nhl.keys {
		if k == "nhl|tminus|ev9|120" {
			tminus++
		}
	}
	assert.Equal(t, 1, tminus)
}

func TestTickSkipsDisabledJobs(t *testing.T) {
	cfg := &infra.Config{
		Timezone:       "America/New_York",
		TickMs:         60000,
		EnableOddsPull: false,
	}
	odds := &recordingRunner{name: "pull_odds_hourly"}
	settle := &recordingRunner{name: "settle_results"}

	s := New(cfg, fakeStore{}, &fakeGames{}, odds, settle, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.tick(context.Background())

	assert.Empty(t, odds.keys)
	require.Len(t, settle.keys, 1)
}
