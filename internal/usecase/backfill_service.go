package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"

	"github.com/manogolf/nhl-splits/internal/domain/gamelog"
	"github.com/manogolf/nhl-splits/internal/domain/pbp"
	"github.com/manogolf/nhl-splits/internal/domain/progress"
	"github.com/manogolf/nhl-splits/internal/platform/logging"
)

const maxBackfillWorkers = 8

// GameFeedProvider fetches and normalizes one game's play-by-play feed.
type GameFeedProvider interface {
	FetchGame(ctx context.Context, gameID int64) (pbp.Game, error)
}

// BackfillInput controls one backfill run.
type BackfillInput struct {
	Task         string        `validate:"required,oneof=skater_splits_v1 goalie_splits_v1"`
	BatchSize    int           `validate:"gte=1,lte=1000"`
	DelayPerGame time.Duration `validate:"gte=0"`
	MaxWorkers   int
	Commit       bool
}

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	Task            string
	Commit          bool
	WorkerCount     int
	OffendersBefore int
	GamesProcessed  int
	GamesSkipped    int
	RowsConsidered  int
	RowsUpdated     int
	WouldUpdate     int
	RowsRejected    int
	DurationMs      int64
}

// BackfillService repairs per-game stat rows whose strength splits disagree
// with the recorded totals, rebuilding them from the play-by-play feed. The
// scan is checkpointed per task and resumes where the previous run stopped.
type BackfillService struct {
	provider GameFeedProvider
	skaters  *skaterSplitsTarget
	goalies  *goalieSplitsTarget
	progress progress.Repository
	logger   *logging.Logger
	validate *validator.Validate
}

func NewBackfillService(
	provider GameFeedProvider,
	skaters gamelog.SkaterRepository,
	goalies gamelog.GoalieRepository,
	progressRepo progress.Repository,
	opts pbp.Options,
	logger *logging.Logger,
) *BackfillService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BackfillService{
		provider: provider,
		skaters:  &skaterSplitsTarget{repo: skaters, opts: opts},
		goalies:  &goalieSplitsTarget{repo: goalies, opts: opts},
		progress: progressRepo,
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *BackfillService) Run(ctx context.Context, input BackfillInput) (BackfillResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BackfillService.Run")
	defer span.End()

	if err := s.validate.StructCtx(ctx, input); err != nil {
		return BackfillResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.provider == nil || s.progress == nil {
		return BackfillResult{}, fmt.Errorf("%w: backfill is not fully configured", ErrDependencyUnavailable)
	}

	target, err := s.resolveTarget(input.Task)
	if err != nil {
		return BackfillResult{}, err
	}

	start := time.Now()
	workerCount := normalizeBackfillWorkerCount(input.MaxWorkers)
	result := BackfillResult{
		Task:        target.TaskKey(),
		Commit:      input.Commit,
		WorkerCount: workerCount,
	}

	result.OffendersBefore, err = target.CountOffenders(ctx)
	if err != nil {
		return result, fmt.Errorf("count offenders task=%s: %w", target.TaskKey(), err)
	}
	if result.OffendersBefore == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	checkpoint, err := s.progress.Get(ctx, target.TaskKey())
	if err != nil {
		return result, fmt.Errorf("load checkpoint task=%s: %w", target.TaskKey(), err)
	}
	cursor := checkpoint.LastGameID

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return result, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	// The cursor walks game ids in ascending order. An empty page past a
	// non-null cursor wraps the scan back to the start exactly once, so a
	// single run covers the whole keyspace and still terminates when some
	// offenders cannot be reconciled.
	wrapped := cursor == nil
	for {
		if err := ctx.Err(); err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, err
		}

		page, err := target.ListOffenderGames(ctx, cursor, input.BatchSize)
		if err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, fmt.Errorf("list offender games task=%s: %w", target.TaskKey(), err)
		}
		if len(page) == 0 {
			if wrapped {
				break
			}
			wrapped = true
			cursor = nil
			if err := s.advanceCheckpoint(ctx, target.TaskKey(), nil, input.Commit); err != nil {
				result.DurationMs = time.Since(start).Milliseconds()
				return result, err
			}
			continue
		}

		fetched, err := s.prefetchGames(ctx, pool, page)
		if err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, err
		}

		for _, gameID := range page {
			gameID := gameID
			feed := fetched[gameID]
			if feed.err != nil {
				s.logger.WarnContext(ctx, "skipping game: feed unavailable",
					"task", target.TaskKey(),
					"game_id", gameID,
					"error", feed.err.Error(),
				)
				result.GamesSkipped++
			} else {
				outcome, err := target.ApplyGame(ctx, feed.game, input.Commit)
				if err != nil {
					// A failed write leaves the checkpoint behind this game
					// so the next run retries it.
					result.DurationMs = time.Since(start).Milliseconds()
					return result, err
				}
				result.GamesProcessed++
				result.RowsConsidered += outcome.RowsConsidered
				result.RowsUpdated += outcome.RowsUpdated
				result.WouldUpdate += outcome.WouldUpdate
				result.RowsRejected += outcome.RowsRejected
			}

			cursor = &gameID
			if err := s.advanceCheckpoint(ctx, target.TaskKey(), cursor, input.Commit); err != nil {
				result.DurationMs = time.Since(start).Milliseconds()
				return result, err
			}

			if input.DelayPerGame > 0 {
				select {
				case <-ctx.Done():
					result.DurationMs = time.Since(start).Milliseconds()
					return result, ctx.Err()
				case <-time.After(input.DelayPerGame):
				}
			}
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *BackfillService) resolveTarget(task string) (splitsTarget, error) {
	switch task {
	case TaskSkaterSplits:
		if s.skaters.repo == nil {
			return nil, fmt.Errorf("%w: skater game log repository is not configured", ErrDependencyUnavailable)
		}
		return s.skaters, nil
	case TaskGoalieSplits:
		if s.goalies.repo == nil {
			return nil, fmt.Errorf("%w: goalie game log repository is not configured", ErrDependencyUnavailable)
		}
		return s.goalies, nil
	default:
		return nil, fmt.Errorf("%w: unknown backfill task %q", ErrInvalidInput, task)
	}
}

type fetchedGame struct {
	gameID int64
	game   pbp.Game
	err    error
}

// prefetchGames pulls one page of feeds concurrently. Application stays
// single-threaded afterwards so checkpoints only ever advance in game order.
func (s *BackfillService) prefetchGames(ctx context.Context, pool *ants.Pool, page []int64) (map[int64]fetchedGame, error) {
	results := make(chan fetchedGame, len(page))

	var workers sync.WaitGroup
	for _, gameID := range page {
		gameID := gameID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			game, err := s.provider.FetchGame(ctx, gameID)
			results <- fetchedGame{gameID: gameID, game: game, err: err}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit fetch to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	fetched := make(map[int64]fetchedGame, len(page))
	for row := range results {
		fetched[row.gameID] = row
	}
	return fetched, nil
}

// advanceCheckpoint persists the cursor only on committed runs; a dry run
// tracks it in memory so the database stays untouched.
func (s *BackfillService) advanceCheckpoint(ctx context.Context, task string, lastGameID *int64, commit bool) error {
	if !commit {
		return nil
	}
	if err := s.progress.Set(ctx, task, lastGameID); err != nil {
		return fmt.Errorf("advance checkpoint task=%s: %w", task, err)
	}
	return nil
}

func normalizeBackfillWorkerCount(value int) int {
	if value <= 0 {
		value = 2
	}
	if value > maxBackfillWorkers {
		value = maxBackfillWorkers
	}
	return value
}
