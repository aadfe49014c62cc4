package tasks

import (
	"context"
	"fmt"
	"time"
)

const quotaPruneTimeout = time.Minute

// newQuotaPruneTask creates the task that deletes quota counters dated before
// today. Those rows already read as zero, so pruning only reclaims space.
func newQuotaPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "quota_prune")

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, quotaPruneTimeout)
		defer cancel()

		deleted, err := deps.Quota.Prune(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Quota prune failed", "error", err)
			return fmt.Errorf("quota prune failed: %w", err)
		}
		log.InfoContext(ctx, "Pruned stale quota records", "deleted", deleted)
		return nil
	}
}
