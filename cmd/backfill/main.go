package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manogolf/nhl-splits/internal/app"
	"github.com/manogolf/nhl-splits/internal/config"
	"github.com/manogolf/nhl-splits/internal/observability"
	"github.com/manogolf/nhl-splits/internal/platform/logging"
	"github.com/manogolf/nhl-splits/internal/usecase"
)

const taskAll = "all"

func main() {
	task := flag.String("task", taskAll, "backfill task to run: skater_splits_v1, goalie_splits_v1 or all")
	batchSize := flag.Int("batch-size", 0, "offender page size, overrides BACKFILL_BATCH_SIZE")
	delay := flag.Duration("delay", 0, "pause between games, overrides BACKFILL_DELAY")
	workers := flag.Int("workers", 0, "concurrent feed fetches, overrides BACKFILL_WORKERS")
	commit := flag.Bool("commit", false, "write repaired rows; without it the run only reports what it would change")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	passed := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { passed[f.Name] = true })
	if passed["batch-size"] {
		cfg.BackfillBatchSize = *batchSize
	}
	if passed["delay"] {
		cfg.BackfillDelayPerGame = *delay
	}
	if passed["workers"] {
		cfg.BackfillWorkers = *workers
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	tasks, err := resolveTasks(*task)
	if err != nil {
		logger.Error("resolve tasks", "error", err)
		os.Exit(1)
	}

	exitCode := 0
	for _, key := range tasks {
		result, err := application.Backfill.Run(ctx, usecase.BackfillInput{
			Task:         key,
			BatchSize:    cfg.BackfillBatchSize,
			DelayPerGame: cfg.BackfillDelayPerGame,
			MaxWorkers:   cfg.BackfillWorkers,
			Commit:       *commit,
		})
		logger.InfoContext(ctx, "backfill run finished",
			"task", result.Task,
			"commit", result.Commit,
			"offenders_before", result.OffendersBefore,
			"games_processed", result.GamesProcessed,
			"games_skipped", result.GamesSkipped,
			"rows_updated", result.RowsUpdated,
			"would_update", result.WouldUpdate,
			"rows_rejected", result.RowsRejected,
			"duration_ms", result.DurationMs,
		)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("backfill interrupted", "task", key)
			} else {
				logger.ErrorContext(ctx, "backfill run failed", "task", key, "error", err)
			}
			exitCode = 1
			break
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
		logger.Error("stop pprof", "error", err)
	}
	if err := stopPyroscope(); err != nil {
		logger.Error("stop pyroscope", "error", err)
	}
	if err := shutdownUptrace(shutdownCtx); err != nil {
		logger.Error("shutdown uptrace", "error", err)
	}

	_ = application.Close()
	_ = logger.Sync()
	os.Exit(exitCode)
}

func resolveTasks(task string) ([]string, error) {
	switch task {
	case taskAll:
		return []string{usecase.TaskSkaterSplits, usecase.TaskGoalieSplits}, nil
	case "skater", usecase.TaskSkaterSplits:
		return []string{usecase.TaskSkaterSplits}, nil
	case "goalie", usecase.TaskGoalieSplits:
		return []string{usecase.TaskGoalieSplits}, nil
	default:
		return nil, errors.New("unknown task: " + task)
	}
}
