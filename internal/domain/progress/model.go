// Package progress models the per-task backfill checkpoint.
package progress

import "time"

// Checkpoint records how far a backfill task has scanned. LastGameID nil
// means the next scan starts from the beginning of the keyspace.
type Checkpoint struct {
	Task       string
	LastGameID *int64
	UpdatedAt  time.Time
}
