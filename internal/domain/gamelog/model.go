// Package gamelog models the persisted per-game stat rows that the backfill
// engine reconciles and repairs.
package gamelog

import "github.com/manogolf/nhl-splits/internal/domain/pbp"

// SkaterRecord is the upstream-owned slice of a skater_game_logs row that
// the engine reads but never writes.
type SkaterRecord struct {
	GameID       int64
	PlayerID     int64
	ShotsOnGoal  int
	SplitsBroken bool
}

// GoalieRecord mirrors SkaterRecord for goalie_game_logs.
type GoalieRecord struct {
	GameID       int64
	PlayerID     int64
	ShotsFaced   int
	SplitsBroken bool
}

// SkaterUpdate is one guarded write: the full derived line for one skater in
// one game.
type SkaterUpdate struct {
	GameID   int64
	PlayerID int64
	Line     pbp.SkaterLine
}

// GoalieUpdate is one guarded write for a goalie row.
type GoalieUpdate struct {
	GameID   int64
	PlayerID int64
	Line     pbp.GoalieLine
}
