package usecase

import (
	"context"
	"fmt"

	"github.com/manogolf/nhl-splits/internal/domain/gamelog"
	"github.com/manogolf/nhl-splits/internal/domain/pbp"
)

const (
	TaskSkaterSplits = "skater_splits_v1"
	TaskGoalieSplits = "goalie_splits_v1"
)

// GameOutcome is the per-game reconciliation tally for one task.
type GameOutcome struct {
	RowsConsidered int
	RowsUpdated    int
	WouldUpdate    int
	RowsRejected   int
}

// splitsTarget adapts one stat table to the shared backfill loop: offender
// discovery plus guarded application of one aggregated game.
type splitsTarget interface {
	TaskKey() string
	CountOffenders(ctx context.Context) (int, error)
	ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error)
	// ApplyGame reconciles one fetched game against the stored rows. Writes
	// happen only when commit is set; the guard verdicts are computed either
	// way so a dry run reports real numbers.
	ApplyGame(ctx context.Context, game pbp.Game, commit bool) (GameOutcome, error)
}

type skaterSplitsTarget struct {
	repo gamelog.SkaterRepository
	opts pbp.Options
}

func (t *skaterSplitsTarget) TaskKey() string { return TaskSkaterSplits }

func (t *skaterSplitsTarget) CountOffenders(ctx context.Context) (int, error) {
	return t.repo.CountOffenders(ctx)
}

func (t *skaterSplitsTarget) ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error) {
	return t.repo.ListOffenderGames(ctx, afterGameID, limit)
}

func (t *skaterSplitsTarget) ApplyGame(ctx context.Context, game pbp.Game, commit bool) (GameOutcome, error) {
	totals := pbp.Aggregate(game.Events, t.opts)

	records, err := t.repo.ListRecordsByGame(ctx, game.GameID)
	if err != nil {
		return GameOutcome{}, err
	}

	outcome := GameOutcome{}
	updates := make([]gamelog.SkaterUpdate, 0, len(records))
	for _, record := range records {
		if !record.SplitsBroken {
			continue
		}
		outcome.RowsConsidered++

		line := pbp.SkaterLine{}
		if derived, ok := totals.Skaters[record.PlayerID]; ok {
			line = *derived
		}
		if !shouldApplySplits(line.SOG(), record.ShotsOnGoal) {
			outcome.RowsRejected++
			continue
		}
		outcome.WouldUpdate++
		updates = append(updates, gamelog.SkaterUpdate{
			GameID:   record.GameID,
			PlayerID: record.PlayerID,
			Line:     line,
		})
	}

	if commit && len(updates) > 0 {
		applied, err := t.repo.ApplySplits(ctx, updates)
		if err != nil {
			return outcome, fmt.Errorf("apply skater splits game_id=%d: %w", game.GameID, err)
		}
		outcome.RowsUpdated = applied
	}
	return outcome, nil
}

type goalieSplitsTarget struct {
	repo gamelog.GoalieRepository
	opts pbp.Options
}

func (t *goalieSplitsTarget) TaskKey() string { return TaskGoalieSplits }

func (t *goalieSplitsTarget) CountOffenders(ctx context.Context) (int, error) {
	return t.repo.CountOffenders(ctx)
}

func (t *goalieSplitsTarget) ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error) {
	return t.repo.ListOffenderGames(ctx, afterGameID, limit)
}

func (t *goalieSplitsTarget) ApplyGame(ctx context.Context, game pbp.Game, commit bool) (GameOutcome, error) {
	totals := pbp.Aggregate(game.Events, t.opts)

	records, err := t.repo.ListRecordsByGame(ctx, game.GameID)
	if err != nil {
		return GameOutcome{}, err
	}

	outcome := GameOutcome{}
	updates := make([]gamelog.GoalieUpdate, 0, len(records))
	for _, record := range records {
		if !record.SplitsBroken {
			continue
		}
		outcome.RowsConsidered++

		line := pbp.GoalieLine{}
		if derived, ok := totals.Goalies[record.PlayerID]; ok {
			line = *derived
		}
		if !shouldApplySplits(line.ShotsFaced(), record.ShotsFaced) {
			outcome.RowsRejected++
			continue
		}
		outcome.WouldUpdate++
		updates = append(updates, gamelog.GoalieUpdate{
			GameID:   record.GameID,
			PlayerID: record.PlayerID,
			Line:     line,
		})
	}

	if commit && len(updates) > 0 {
		applied, err := t.repo.ApplySplits(ctx, updates)
		if err != nil {
			return outcome, fmt.Errorf("apply goalie splits game_id=%d: %w", game.GameID, err)
		}
		outcome.RowsUpdated = applied
	}
	return outcome, nil
}
