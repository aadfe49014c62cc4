package memory

import (
	"context"
	"log/slog"

	"github.com/edgard/relaybot/internal/database"
)

type databaseBackend struct {
	store database.Store
}

func (b databaseBackend) Load(ctx context.Context, userID int64) (string, bool, error) {
	mem, err := b.store.GetUserMemory(ctx, userID)
	if err != nil || mem == nil {
		return "", false, err
	}
	return mem.Content, true, nil
}

func (b databaseBackend) Save(ctx context.Context, userID int64, content string) error {
	return b.store.SaveUserMemory(ctx, userID, content)
}

func (b databaseBackend) Delete(ctx context.Context, userID int64) error {
	return b.store.DeleteUserMemory(ctx, userID)
}

// NewFromDatabase creates a Store persisted in the user_memories table.
func NewFromDatabase(store database.Store, cacheSize int, logger *slog.Logger) (*Store, error) {
	return New(databaseBackend{store: store}, cacheSize, logger)
}
