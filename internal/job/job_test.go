package job

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardline/platform/internal/card"
	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/enrich"
	"github.com/cardline/platform/internal/provider"
	"github.com/cardline/platform/internal/repository"
)

// fakeStore satisfies Store without a real database; reads hand the
// fakes a nil handle they ignore.
type fakeStore struct{}

func (fakeStore) DB() *sql.DB { return nil }
func (fakeStore) WriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type fakeJobRuns struct {
	shouldRun bool
	inserted  []*domain.JobRun
	succeeded []string
	failed    map[string]string
}

func newFakeJobRuns(shouldRun bool) *fakeJobRuns {
	return &fakeJobRuns{shouldRun: shouldRun, failed: map[string]string{}}
}

func (f *fakeJobRuns) Insert(ctx context.Context, db repository.DBTX, run *domain.JobRun) error {
	f.inserted = append(f.inserted, run)
	return nil
}

func (f *fakeJobRuns) MarkSuccess(ctx context.Context, db repository.DBTX, id string, endedAt time.Time) error {
	f.succeeded = append(f.succeeded, id)
	return nil
}

func (f *fakeJobRuns) MarkFailed(ctx context.Context, db repository.DBTX, id string, endedAt time.Time, msg string) error {
	f.failed[id] = msg
	return nil
}

func (f *fakeJobRuns) ShouldRunJobKey(ctx context.Context, db repository.DBTX, key string) (bool, error) {
	return f.shouldRun, nil
}

func (f *fakeJobRuns) FailRunning(ctx context.Context, db repository.DBTX, msg string, endedAt time.Time) (int64, error) {
	return 0, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestExecuteSkipsSatisfiedWindow(t *testing.T) {
	runs := newFakeJobRuns(false)
	res, err := execute(context.Background(), fakeStore{}, runs, discard(), "pull_odds_hourly",
		Options{JobKey: "odds|hourly|2026-03-09|18"},
		func(ctx context.Context, id string) (map[string]int, error) {
			t.Fatal("body must not run for a satisfied window")
			return nil, nil
		})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, runs.inserted)
}

func TestExecuteDryRunWritesNothing(t *testing.T) {
	runs := newFakeJobRuns(true)
	res, err := execute(context.Background(), fakeStore{}, runs, discard(), "pull_odds_hourly",
		Options{JobKey: "odds|hourly|2026-03-09|18", DryRun: true},
		func(ctx context.Context, id string) (map[string]int, error) {
			t.Fatal("body must not run in dry run")
			return nil, nil
		})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Empty(t, runs.inserted)
}

func TestExecuteMarksSuccess(t *testing.T) {
	runs := newFakeJobRuns(true)
	res, err := execute(context.Background(), fakeStore{}, runs, discard(), "run_nba_model",
		Options{JobKey: "nba|fixed|2026-03-09|0900"},
		func(ctx context.Context, id string) (map[string]int, error) {
			return map[string]int{"cards": 2}, nil
		})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, runs.inserted, 1)
	require.NotNil(t, runs.inserted[0].JobKey)
	assert.Equal(t, "nba|fixed|2026-03-09|0900", *runs.inserted[0].JobKey)
	assert.Equal(t, []string{res.JobRunID}, runs.succeeded)
	assert.Equal(t, 2, res.Counts["cards"])
}

func TestExecuteMarksFailed(t *testing.T) {
	runs := newFakeJobRuns(true)
	res, err := execute(context.Background(), fakeStore{}, runs, discard(), "run_nba_model",
		Options{},
		func(ctx context.Context, id string) (map[string]int, error) {
			return nil, errors.New("provider down")
		})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "provider down", runs.failed[res.JobRunID])
}

func TestExecuteCancelledContextRecordsCancelled(t *testing.T) {
	runs := newFakeJobRuns(true)
	ctx, cancel := context.WithCancel(context.Background())
	res, err := execute(ctx, fakeStore{}, runs, discard(), "run_nhl_model",
		Options{},
		func(ctx context.Context, id string) (map[string]int, error) {
			cancel()
			return nil, ctx.Err()
		})
	require.Error(t, err)
	assert.Equal(t, "cancelled", runs.failed[res.JobRunID])
}

func TestDedupeDescriptorsKeepsHighestConfidence(t *testing.T) {
	descs := []domain.DriverDescriptor{
		{CardType: "nba-composite", Confidence: 0.62},
		{CardType: "nba-pace-matchup", Confidence: 0.70},
		{CardType: "nba-composite", Confidence: 0.71},
	}
	out := dedupeDescriptors(descs)
	require.Len(t, out, 2)
	assert.Equal(t, "nba-composite", out[0].CardType)
	assert.InDelta(t, 0.71, out[0].Confidence, 0.0001)
	assert.Equal(t, "nba-pace-matchup", out[1].CardType)
}

// Compile-time wiring checks for the provider-facing seams.
var (
	_ OddsFetcher  = (*provider.OddsClient)(nil)
	_ TeamEnricher = (*enrich.Enricher)(nil)
	_ CardWriter   = (*card.Writer)(nil)
)
