package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/manogolf/nhl-splits/internal/domain/gamelog"
	qb "github.com/manogolf/nhl-splits/internal/platform/querybuilder"
)

const goalieOffenderPredicate = `shots_faced > 0 AND (ev_shots_faced IS NULL OR pp_shots_faced IS NULL OR sh_shots_faced IS NULL OR COALESCE(ev_shots_faced, 0) + COALESCE(pp_shots_faced, 0) + COALESCE(sh_shots_faced, 0) <> shots_faced)`

type GoalieGameLogRepository struct {
	db *sqlx.DB
}

func NewGoalieGameLogRepository(db *sqlx.DB) *GoalieGameLogRepository {
	return &GoalieGameLogRepository{db: db}
}

func (r *GoalieGameLogRepository) CountOffenders(ctx context.Context) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("goalie_game_logs").
		Where(qb.Expr(goalieOffenderPredicate)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count goalie offenders query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count goalie offenders: %w", err)
	}
	return count, nil
}

func (r *GoalieGameLogRepository) ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error) {
	return listOffenderGames(ctx, r.db, "goalie_game_logs", goalieOffenderPredicate, afterGameID, limit)
}

func (r *GoalieGameLogRepository) ListRecordsByGame(ctx context.Context, gameID int64) ([]gamelog.GoalieRecord, error) {
	query, args, err := qb.Select(
		"game_id",
		"player_id",
		"shots_faced",
		"("+goalieOffenderPredicate+") AS splits_broken",
	).From("goalie_game_logs").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list goalie records query: %w", err)
	}

	var rows []goalieRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list goalie records game_id=%d: %w", gameID, err)
	}

	out := make([]gamelog.GoalieRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, gamelog.GoalieRecord{
			GameID:       row.GameID,
			PlayerID:     row.PlayerID,
			ShotsFaced:   row.ShotsFaced,
			SplitsBroken: row.SplitsBroken,
		})
	}
	return out, nil
}

func (r *GoalieGameLogRepository) ApplySplits(ctx context.Context, updates []gamelog.GoalieUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx apply goalie splits: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	applied := 0
	for _, update := range updates {
		line := update.Line
		query, args, err := qb.Update("goalie_game_logs").
			Set("ev_shots_faced", line.EVShotsFaced).
			Set("pp_shots_faced", line.PPShotsFaced).
			Set("sh_shots_faced", line.SHShotsFaced).
			Set("high_danger_shots_faced", line.HighDangerShotsFaced).
			Set("rebounds_allowed", line.ReboundsAllowed).
			SetExpr("splits_updated_at", "NOW()").
			Where(
				qb.Eq("game_id", update.GameID),
				qb.Eq("player_id", update.PlayerID),
				qb.Expr(goalieOffenderPredicate),
				qb.Expr("(? + ? + ?) = shots_faced", line.EVShotsFaced, line.PPShotsFaced, line.SHShotsFaced),
			).
			ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build apply goalie splits query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("apply goalie splits game_id=%d player_id=%d: %w", update.GameID, update.PlayerID, err)
		}
		if affected, err := result.RowsAffected(); err == nil {
			applied += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit apply goalie splits tx: %w", err)
	}
	return applied, nil
}
