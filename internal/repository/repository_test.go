package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/infra"
)

func newTestStore(t *testing.T) *infra.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := infra.OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, infra.RunMigrations(path, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return store
}

func write(t *testing.T, store *infra.Store, fn func(tx *sql.Tx) error) {
	t.Helper()
	require.NoError(t, store.WriteTx(context.Background(), fn))
}

func insertGame(t *testing.T, store *infra.Store, repo GameRepository, sport domain.Sport, providerID string, start time.Time) *domain.Game {
	t.Helper()
	g := &domain.Game{
		ID:             domain.GameID(sport, providerID),
		Sport:          sport,
		ProviderGameID: providerID,
		HomeTeam:       "Home Club",
		AwayTeam:       "Away Club",
		GameTimeUTC:    start,
		Status:         domain.GameScheduled,
	}
	write(t, store, func(tx *sql.Tx) error {
		return repo.Upsert(context.Background(), tx, g)
	})
	return g
}

func TestGameUpsertStableID(t *testing.T) {
	store := newTestStore(t)
	repo := NewGameRepository()
	ctx := context.Background()
	start := time.Now().UTC().Add(4 * time.Hour).Truncate(time.Second)

	insertGame(t, store, repo, domain.SportNHL, "ev42", start)
	// Second ingest of the identical payload lands on the same row.
	insertGame(t, store, repo, domain.SportNHL, "ev42", start)

	g, err := repo.FindByID(ctx, store.DB(), "game-nhl-ev42")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "ev42", g.ProviderGameID)

	games, err := repo.ListUpcoming(ctx, store.DB(), []domain.Sport{domain.SportNHL},
		time.Now().UTC(), time.Now().UTC().Add(36*time.Hour))
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestShouldRunJobKeyLifecycle(t *testing.T) {
	store := newTestStore(t)
	repo := NewJobRunRepository()
	ctx := context.Background()
	key := "nhl|tminus|ev42|120"

	ok, err := repo.ShouldRunJobKey(ctx, store.DB(), key)
	require.NoError(t, err)
	assert.True(t, ok, "unseen key must run")

	run := &domain.JobRun{JobName: "run_nhl_model", JobKey: &key}
	write(t, store, func(tx *sql.Tx) error { return repo.Insert(ctx, tx, run) })

	ok, err = repo.ShouldRunJobKey(ctx, store.DB(), key)
	require.NoError(t, err)
	assert.False(t, ok, "running key must not run again")

	write(t, store, func(tx *sql.Tx) error {
		return repo.MarkFailed(ctx, tx, run.ID, time.Now().UTC(), "provider down")
	})
	ok, err = repo.ShouldRunJobKey(ctx, store.DB(), key)
	require.NoError(t, err)
	assert.True(t, ok, "failed key permits retry")

	retry := &domain.JobRun{JobName: "run_nhl_model", JobKey: &key}
	write(t, store, func(tx *sql.Tx) error { return repo.Insert(ctx, tx, retry) })
	write(t, store, func(tx *sql.Tx) error {
		return repo.MarkSuccess(ctx, tx, retry.ID, time.Now().UTC())
	})

	ok, err = repo.ShouldRunJobKey(ctx, store.DB(), key)
	require.NoError(t, err)
	assert.False(t, ok, "succeeded key never runs again")

	// A different band for the same game is an independent key.
	ok, err = repo.ShouldRunJobKey(ctx, store.DB(), "nhl|tminus|ev42|30")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkSuccessRequiresRunning(t *testing.T) {
	store := newTestStore(t)
	repo := NewJobRunRepository()
	ctx := context.Background()

	run := &domain.JobRun{JobName: "pull_odds_hourly"}
	write(t, store, func(tx *sql.Tx) error { return repo.Insert(ctx, tx, run) })
	write(t, store, func(tx *sql.Tx) error {
		return repo.MarkSuccess(ctx, tx, run.ID, time.Now().UTC())
	})

	err := store.WriteTx(ctx, func(tx *sql.Tx) error {
		return repo.MarkSuccess(ctx, tx, run.ID, time.Now().UTC())
	})
	require.Error(t, err, "terminal transitions are one-way")
}

func TestFailRunningRecoversOrphans(t *testing.T) {
	store := newTestStore(t)
	repo := NewJobRunRepository()
	ctx := context.Background()
	key := "odds|hourly|2026-03-09|18"

	run := &domain.JobRun{JobName: "pull_odds_hourly", JobKey: &key}
	write(t, store, func(tx *sql.Tx) error { return repo.Insert(ctx, tx, run) })

	var recovered int64
	write(t, store, func(tx *sql.Tx) error {
		var err error
		recovered, err = repo.FailRunning(ctx, tx, "orphaned at startup", time.Now().UTC())
		return err
	})
	assert.Equal(t, int64(1), recovered)

	ok, err := repo.ShouldRunJobKey(ctx, store.DB(), key)
	require.NoError(t, err)
	assert.True(t, ok, "recovered window is retryable")
}

func prepareCard(t *testing.T, store *infra.Store, repo CardRepository, gameID, windowKey string, expires time.Time) bool {
	t.Helper()
	bet := domain.BetMoneyline
	var created bool
	write(t, store, func(tx *sql.Tx) error {
		var err error
		created, err = repo.PrepareModelAndCardWrite(context.Background(), tx, PrepareCardParams{
			Output: &domain.ModelOutput{
				GameID:         gameID,
				ModelName:      "nhl-composite",
				ModelVersion:   "nhl-v2",
				PredictionType: "HOME",
				PredictedAt:    time.Now().UTC(),
				Confidence:     0.68,
			},
			Card: &domain.CardPayload{
				GameID:        gameID,
				Sport:         domain.SportNHL,
				CardType:      "nhl-composite",
				CardTitle:     "NHL Composite Edge",
				SchemaVersion: domain.CardSchemaVersion,
				WindowKey:     windowKey,
				CreatedAt:     time.Now().UTC(),
				ExpiresAt:     &expires,
				PayloadData:   []byte(`{"prediction":"HOME"}`),
				ModelVersion:  "nhl-v2",
			},
			BetType: &bet,
		})
		return err
	})
	return created
}

func TestCardIdempotentWithinWindow(t *testing.T) {
	store := newTestStore(t)
	games := NewGameRepository()
	cards := NewCardRepository()
	ctx := context.Background()
	start := time.Now().UTC().Add(5 * time.Hour).Truncate(time.Second)
	g := insertGame(t, store, games, domain.SportNHL, "ev42", start)
	expires := start.Add(-time.Hour)

	assert.True(t, prepareCard(t, store, cards, g.ID, "nhl|fixed|2026-03-09|0900", expires))
	// Same window: no second row.
	assert.False(t, prepareCard(t, store, cards, g.ID, "nhl|fixed|2026-03-09|0900", expires))
	// A later window refreshes the card.
	assert.True(t, prepareCard(t, store, cards, g.ID, "nhl|tminus|ev42|120", expires))

	active, err := cards.ListActiveByGame(ctx, store.DB(), g.ID, "", time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Expired cards are never served.
	after, err := cards.ListActiveByGame(ctx, store.DB(), g.ID, "", expires.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestSettlementOneShot(t *testing.T) {
	store := newTestStore(t)
	games := NewGameRepository()
	cards := NewCardRepository()
	results := NewResultRepository()
	ctx := context.Background()
	start := time.Now().UTC().Add(-6 * time.Hour).Truncate(time.Second)
	g := insertGame(t, store, games, domain.SportNHL, "ev42", start)

	require.True(t, prepareCard(t, store, cards, g.ID, "nhl|tminus|ev42|120", start.Add(-time.Hour)))

	write(t, store, func(tx *sql.Tx) error {
		return results.UpsertGameResult(ctx, tx, &domain.GameResult{
			GameID: g.ID, HomeScore: 4, AwayScore: 2,
			Status: domain.GameResultFinal, FinalAt: time.Now().UTC(),
		})
	})
	// Second grade of the same game is a no-op.
	write(t, store, func(tx *sql.Tx) error {
		return results.UpsertGameResult(ctx, tx, &domain.GameResult{
			GameID: g.ID, HomeScore: 9, AwayScore: 9,
			Status: domain.GameResultFinal, FinalAt: time.Now().UTC(),
		})
	})
	res, err := results.FindGameResult(ctx, store.DB(), g.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 4, res.HomeScore)

	pending, err := results.PendingSettleable(ctx, store.DB())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	var applied bool
	write(t, store, func(tx *sql.Tx) error {
		var err error
		applied, err = results.MarkSettled(ctx, tx, pending[0].Result.ID,
			domain.OutcomeWin, 0.909, time.Now().UTC())
		return err
	})
	assert.True(t, applied)

	// One-shot: a second settle reports false and changes nothing.
	write(t, store, func(tx *sql.Tx) error {
		var err error
		applied, err = results.MarkSettled(ctx, tx, pending[0].Result.ID,
			domain.OutcomeLoss, -1, time.Now().UTC())
		return err
	})
	assert.False(t, applied)

	remaining, err := results.PendingSettleable(ctx, store.DB())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestTrackingApplyAccumulates(t *testing.T) {
	store := newTestStore(t)
	repo := NewTrackingRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	write(t, store, func(tx *sql.Tx) error {
		return repo.Apply(ctx, tx, domain.SportNHL, domain.OutcomeWin, 0.909, now)
	})
	write(t, store, func(tx *sql.Tx) error {
		return repo.Apply(ctx, tx, domain.SportNHL, domain.OutcomeLoss, -1, now)
	})
	write(t, store, func(tx *sql.Tx) error {
		return repo.Apply(ctx, tx, domain.SportNBA, domain.OutcomePush, 0, now)
	})

	stats, err := repo.GetAll(ctx, store.DB())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	bySport := make(map[domain.Sport]domain.TrackingStats)
	for _, s := range stats {
		bySport[s.Sport] = s
	}
	nhl := bySport[domain.SportNHL]
	assert.Equal(t, 1, nhl.Wins)
	assert.Equal(t, 1, nhl.Losses)
	assert.InDelta(t, -0.091, nhl.Units, 0.0001)
	assert.Equal(t, 1, bySport[domain.SportNBA].Pushes)
}

func TestOddsSnapshotLatestAndPrune(t *testing.T) {
	store := newTestStore(t)
	games := NewGameRepository()
	odds := NewOddsRepository()
	ctx := context.Background()
	start := time.Now().UTC().Add(3 * time.Hour).Truncate(time.Second)
	g := insertGame(t, store, games, domain.SportNBA, "ev7", start)

	old := time.Now().UTC().Add(-3 * time.Hour)
	fresh := time.Now().UTC().Add(-10 * time.Minute)
	ml := -120
	for _, capturedAt := range []time.Time{old, fresh} {
		write(t, store, func(tx *sql.Tx) error {
			return odds.InsertSnapshot(ctx, tx, &domain.OddsSnapshot{
				GameID:        g.ID,
				CapturedAt:    capturedAt,
				MoneylineHome: &ml,
			})
		})
	}

	latest, err := odds.LatestByGame(ctx, store.DB(), g.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, fresh.Truncate(time.Second), latest.CapturedAt.Truncate(time.Second))

	var pruned int64
	write(t, store, func(tx *sql.Tx) error {
		var err error
		pruned, err = odds.PruneBefore(ctx, tx, time.Now().UTC().Add(-2*time.Hour))
		return err
	})
	assert.Equal(t, int64(1), pruned)
}
