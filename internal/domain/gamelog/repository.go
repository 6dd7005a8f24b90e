package gamelog

import "context"

// SkaterRepository scans for skater rows whose strength splits disagree with
// the recorded shots-on-goal total and applies repaired splits.
type SkaterRepository interface {
	CountOffenders(ctx context.Context) (int, error)
	ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error)
	ListRecordsByGame(ctx context.Context, gameID int64) ([]SkaterRecord, error)
	// ApplySplits writes the given lines in one transaction. Each row's WHERE
	// clause re-checks the offender predicate and the sum-equality guard, so
	// the returned count may be lower than len(updates).
	ApplySplits(ctx context.Context, updates []SkaterUpdate) (int, error)
}

// GoalieRepository is the goalie-side counterpart keyed on shots_faced.
type GoalieRepository interface {
	CountOffenders(ctx context.Context) (int, error)
	ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error)
	ListRecordsByGame(ctx context.Context, gameID int64) ([]GoalieRecord, error)
	ApplySplits(ctx context.Context, updates []GoalieUpdate) (int, error)
}
