package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	qb "github.com/manogolf/nhl-splits/internal/platform/querybuilder"
)

type skaterRecordRow struct {
	GameID       int64 `db:"game_id"`
	PlayerID     int64 `db:"player_id"`
	ShotsOnGoal  int   `db:"shots_on_goal"`
	SplitsBroken bool  `db:"splits_broken"`
}

type goalieRecordRow struct {
	GameID       int64 `db:"game_id"`
	PlayerID     int64 `db:"player_id"`
	ShotsFaced   int   `db:"shots_faced"`
	SplitsBroken bool  `db:"splits_broken"`
}

// listOffenderGames pages distinct offender game ids in ascending order,
// strictly past the checkpoint when one is set.
func listOffenderGames(ctx context.Context, db *sqlx.DB, table, predicate string, afterGameID *int64, limit int) ([]int64, error) {
	builder := qb.Select("DISTINCT game_id").From(table).
		Where(qb.Expr(predicate)).
		OrderBy("game_id").
		Limit(limit)
	if afterGameID != nil {
		builder = builder.Where(qb.Expr("game_id > ?", *afterGameID))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list offender games query table=%s: %w", table, err)
	}

	var gameIDs []int64
	if err := db.SelectContext(ctx, &gameIDs, query, args...); err != nil {
		return nil, fmt.Errorf("list offender games table=%s: %w", table, err)
	}
	return gameIDs, nil
}
