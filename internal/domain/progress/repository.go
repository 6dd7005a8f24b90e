package progress

import "context"

type Repository interface {
	// Get returns the checkpoint for a task, creating a null row when the
	// task has never run.
	Get(ctx context.Context, task string) (Checkpoint, error)
	// Set advances (or, with nil, resets) the task's checkpoint.
	Set(ctx context.Context, task string, lastGameID *int64) error
}
