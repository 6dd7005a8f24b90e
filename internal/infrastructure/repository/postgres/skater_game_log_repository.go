package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/manogolf/nhl-splits/internal/domain/gamelog"
	qb "github.com/manogolf/nhl-splits/internal/platform/querybuilder"
)

// skaterOffenderPredicate matches rows whose strength splits are missing or
// disagree with the upstream-owned shots_on_goal total.
const skaterOffenderPredicate = `shots_on_goal > 0 AND (ev_sog IS NULL OR pp_sog IS NULL OR sh_sog IS NULL OR COALESCE(ev_sog, 0) + COALESCE(pp_sog, 0) + COALESCE(sh_sog, 0) <> shots_on_goal)`

type SkaterGameLogRepository struct {
	db *sqlx.DB
}

func NewSkaterGameLogRepository(db *sqlx.DB) *SkaterGameLogRepository {
	return &SkaterGameLogRepository{db: db}
}

func (r *SkaterGameLogRepository) CountOffenders(ctx context.Context) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("skater_game_logs").
		Where(qb.Expr(skaterOffenderPredicate)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count skater offenders query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count skater offenders: %w", err)
	}
	return count, nil
}

func (r *SkaterGameLogRepository) ListOffenderGames(ctx context.Context, afterGameID *int64, limit int) ([]int64, error) {
	return listOffenderGames(ctx, r.db, "skater_game_logs", skaterOffenderPredicate, afterGameID, limit)
}

func (r *SkaterGameLogRepository) ListRecordsByGame(ctx context.Context, gameID int64) ([]gamelog.SkaterRecord, error) {
	query, args, err := qb.Select(
		"game_id",
		"player_id",
		"shots_on_goal",
		"("+skaterOffenderPredicate+") AS splits_broken",
	).From("skater_game_logs").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list skater records query: %w", err)
	}

	var rows []skaterRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list skater records game_id=%d: %w", gameID, err)
	}

	out := make([]gamelog.SkaterRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, gamelog.SkaterRecord{
			GameID:       row.GameID,
			PlayerID:     row.PlayerID,
			ShotsOnGoal:  row.ShotsOnGoal,
			SplitsBroken: row.SplitsBroken,
		})
	}
	return out, nil
}

// ApplySplits writes the repaired lines in one transaction. Every UPDATE
// re-checks the offender predicate and the sum-equality guard in its WHERE
// clause, so a row repaired by a concurrent writer, or a line that no longer
// matches the recorded total, is simply not touched.
func (r *SkaterGameLogRepository) ApplySplits(ctx context.Context, updates []gamelog.SkaterUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx apply skater splits: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	applied := 0
	for _, update := range updates {
		line := update.Line
		query, args, err := qb.Update("skater_game_logs").
			Set("shot_attempts", line.ShotAttempts).
			Set("fenwick_for", line.FenwickFor).
			Set("missed_shots", line.MissedShots).
			Set("blocked_shots_taken", line.BlockedShotsTaken).
			Set("rebounds_for", line.ReboundsFor).
			Set("hits", line.Hits).
			Set("takeaways", line.Takeaways).
			Set("giveaways", line.Giveaways).
			Set("penalties_taken", line.PenaltiesTaken).
			Set("penalties_drawn", line.PenaltiesDrawn).
			Set("ev_shot_attempts", line.EVShotAttempts).
			Set("pp_shot_attempts", line.PPShotAttempts).
			Set("sh_shot_attempts", line.SHShotAttempts).
			Set("ev_sog", line.EVSOG).
			Set("pp_sog", line.PPSOG).
			Set("sh_sog", line.SHSOG).
			SetExpr("splits_updated_at", "NOW()").
			Where(
				qb.Eq("game_id", update.GameID),
				qb.Eq("player_id", update.PlayerID),
				qb.Expr(skaterOffenderPredicate),
				qb.Expr("(? + ? + ?) = shots_on_goal", line.EVSOG, line.PPSOG, line.SHSOG),
			).
			ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build apply skater splits query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("apply skater splits game_id=%d player_id=%d: %w", update.GameID, update.PlayerID, err)
		}
		if affected, err := result.RowsAffected(); err == nil {
			applied += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit apply skater splits tx: %w", err)
	}
	return applied, nil
}
