package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/manogolf/nhl-splits/internal/domain/progress"
	qb "github.com/manogolf/nhl-splits/internal/platform/querybuilder"
)

type BackfillProgressRepository struct {
	db *sqlx.DB
}

func NewBackfillProgressRepository(db *sqlx.DB) *BackfillProgressRepository {
	return &BackfillProgressRepository{db: db}
}

type backfillProgressRow struct {
	Task       string        `db:"task"`
	LastGameID sql.NullInt64 `db:"last_game_id"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

// Get returns the task's checkpoint, creating a null row on first use so a
// later Set is always an update of an existing key.
func (r *BackfillProgressRepository) Get(ctx context.Context, task string) (progress.Checkpoint, error) {
	ensure, ensureArgs, err := qb.InsertInto("backfill_progress").
		Columns("task", "last_game_id").
		Values(task, nil).
		Suffix("ON CONFLICT (task) DO NOTHING").
		ToSQL()
	if err != nil {
		return progress.Checkpoint{}, fmt.Errorf("build ensure backfill progress query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, ensure, ensureArgs...); err != nil {
		return progress.Checkpoint{}, fmt.Errorf("ensure backfill progress task=%s: %w", task, err)
	}

	query, args, err := qb.Select("task", "last_game_id", "updated_at").
		From("backfill_progress").
		Where(qb.Eq("task", task)).
		ToSQL()
	if err != nil {
		return progress.Checkpoint{}, fmt.Errorf("build get backfill progress query: %w", err)
	}

	var row backfillProgressRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return progress.Checkpoint{Task: task}, nil
		}
		return progress.Checkpoint{}, fmt.Errorf("get backfill progress task=%s: %w", task, err)
	}

	out := progress.Checkpoint{Task: row.Task, UpdatedAt: row.UpdatedAt}
	if row.LastGameID.Valid {
		value := row.LastGameID.Int64
		out.LastGameID = &value
	}
	return out, nil
}

type backfillProgressWriteRow struct {
	Task       string        `db:"task"`
	LastGameID sql.NullInt64 `db:"last_game_id"`
}

func (r *BackfillProgressRepository) Set(ctx context.Context, task string, lastGameID *int64) error {
	row := backfillProgressWriteRow{Task: task}
	if lastGameID != nil {
		row.LastGameID = sql.NullInt64{Int64: *lastGameID, Valid: true}
	}

	query, args, err := qb.InsertModel("backfill_progress", row,
		"ON CONFLICT (task) DO UPDATE SET last_game_id = EXCLUDED.last_game_id, updated_at = NOW()")
	if err != nil {
		return fmt.Errorf("build set backfill progress query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set backfill progress task=%s: %w", task, err)
	}
	return nil
}
