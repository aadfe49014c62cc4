// Package tasks implements the scheduled maintenance tasks of the relay bot.
package tasks

import (
	"context"
	"log/slog"
)

// Maintainer runs database housekeeping.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// QuotaPruner deletes quota counters from past days.
type QuotaPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  Maintainer
	Quota  QuotaPruner
}
