package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/infra"
	"github.com/cardline/platform/internal/job"
	"github.com/cardline/platform/internal/repository"
)

// upcomingWindow bounds the games loaded per tick: recently started
// through 36 hours out.
const (
	upcomingLookback = time.Hour
	upcomingHorizon  = 36 * time.Hour
)

// candidate is one due job occurrence within a tick.
type candidate struct {
	key    string
	runner job.Runner
}

// Scheduler drives the tick loop. It owns no job state; every
// idempotency decision lives in job_runs via the runners.
type Scheduler struct {
	cfg   *infra.Config
	store job.Store
	games repository.GameRepository

	oddsJob   job.Runner
	settleJob job.Runner
	modelJobs map[domain.Sport]job.Runner

	logger *slog.Logger
}

func New(
	cfg *infra.Config,
	store job.Store,
	games repository.GameRepository,
	oddsJob, settleJob job.Runner,
	modelJobs map[domain.Sport]job.Runner,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg: cfg, store: store, games: games,
		oddsJob: oddsJob, settleJob: settleJob, modelJobs: modelJobs,
		logger: logger,
	}
}

// Run ticks until the context is cancelled. The first tick fires
// immediately. Job failures are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		"tick", s.cfg.TickPeriod().String(),
		"timezone", s.cfg.Timezone,
		"dry_run", s.cfg.DryRun,
		"sports", s.cfg.EnabledSports())

	ticker := time.NewTicker(s.cfg.TickPeriod())
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick computes due candidates and dispatches them sequentially. The
// single-threaded loop is the overlap guard.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	candidates := s.collect(ctx, now)
	if len(candidates) == 0 {
		return
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}
		res, err := c.runner.Run(ctx, job.Options{JobKey: c.key, DryRun: s.cfg.DryRun})
		if err != nil {
			s.logger.Error("job dispatch failed", "job_key", c.key, "error", err)
			continue
		}
		if res.Skipped {
			continue
		}
		s.logger.Info("job dispatched", "job_key", c.key,
			"success", res.Success, "dry_run", res.DryRun)
	}
}

// collect gathers this tick's due job keys: the hourly odds and settle
// buckets, fixed per-sport windows, and per-game T-minus bands, then
// de-duplicates by key.
func (s *Scheduler) collect(ctx context.Context, now time.Time) []candidate {
	loc := s.cfg.Location()
	var out []candidate
	seen := make(map[string]bool)
	add := func(key string, r job.Runner) {
		if r == nil || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, candidate{key: key, runner: r})
	}

	if s.cfg.EnableOddsPull {
		add(HourlyOddsKey(now, loc), s.oddsJob)
	}
	add(SettleKey(now, loc), s.settleJob)

	enabled := s.cfg.EnabledSports()
	for _, sport := range enabled {
		for _, key := range FixedWindowKeys(sport, now, loc, s.cfg.FixedCatchup, s.cfg.TickPeriod()) {
			add(key, s.modelJobs[sport])
		}
	}

	games, err := s.games.ListUpcoming(ctx, s.store.DB(), enabled,
		now.Add(-upcomingLookback), now.Add(upcomingHorizon))
	if err != nil {
		s.logger.Error("failed to load upcoming games", "error", err)
		return out
	}
	for _, game := range games {
		for _, key := range TMinusKeys(game, now) {
			add(key, s.modelJobs[game.Sport])
		}
	}
	return out
}
