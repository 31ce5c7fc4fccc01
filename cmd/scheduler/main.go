package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardline/platform/internal/card"
	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/driver"
	"github.com/cardline/platform/internal/enrich"
	"github.com/cardline/platform/internal/infra"
	"github.com/cardline/platform/internal/job"
	"github.com/cardline/platform/internal/provider"
	"github.com/cardline/platform/internal/repository"
	"github.com/cardline/platform/internal/scheduler"
	"github.com/cardline/platform/internal/settle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("scheduler failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := infra.OpenStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store opened", "path", cfg.DatabasePath)

	if err := infra.RunMigrations(cfg.DatabasePath, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Repositories
	gameRepo := repository.NewGameRepository()
	oddsRepo := repository.NewOddsRepository()
	jobRunRepo := repository.NewJobRunRepository()
	cardRepo := repository.NewCardRepository()
	resultRepo := repository.NewResultRepository()
	trackingRepo := repository.NewTrackingRepository()

	// A crash leaves running rows behind; fail them so their windows
	// become retryable.
	if err := failRunning(ctx, store, jobRunRepo, "orphaned at startup"); err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}

	// External providers
	oddsClient := provider.NewOddsClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, logger)
	statsClient := provider.NewStatsClient(cfg.StatsAPIBaseURL, cfg.StatsAPIKey, logger)

	// Pipeline components
	enricher := enrich.NewEnricher(statsClient, logger)
	writer := card.NewWriter(store, cardRepo, cfg.Location(), logger)
	registry := driver.NewRegistry()
	grader := settle.NewGrader(store, gameRepo, resultRepo, trackingRepo, oddsClient,
		cfg.GradeMinHoursAfterStart, cfg.VoidAfterHours, logger)

	// Jobs
	oddsJob := job.NewPullOddsJob(store, gameRepo, oddsRepo, jobRunRepo,
		oddsClient, cfg.EnabledSports(), logger)
	settleJob := job.NewSettleJob(store, jobRunRepo, grader, logger)
	modelJobs := make(map[domain.Sport]job.Runner)
	for _, sport := range cfg.EnabledSports() {
		module, ok := registry.ForSport(sport)
		if !ok {
			return fmt.Errorf("no driver module for sport %s", sport)
		}
		modelJobs[sport] = job.NewSportModelJob(store, gameRepo, oddsRepo, jobRunRepo,
			enricher, writer, module, logger)
	}

	sched := scheduler.New(cfg, store, gameRepo, oddsJob, settleJob, modelJobs, logger)
	sched.Run(ctx)

	// Whatever was mid-flight when the signal arrived is now failed;
	// its window stays retryable on the next start.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := failRunning(shutdownCtx, store, jobRunRepo, "cancelled"); err != nil {
		logger.Error("shutdown recovery failed", "error", err)
	}
	return nil
}

func failRunning(ctx context.Context, store *infra.Store, jobRuns repository.JobRunRepository, msg string) error {
	return store.WriteTx(ctx, func(tx *sql.Tx) error {
		n, err := jobRuns.FailRunning(ctx, tx, msg, time.Now().UTC())
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("recovered running job rows", "count", n, "reason", msg)
		}
		return nil
	})
}
