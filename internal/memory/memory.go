// Package memory keeps free-text notes about each user. Notes only grow, except
// through an explicit Forget.
package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Separator joins appended notes.
const Separator = "\n"

// Backend is the persistence the memory store needs. database.Store satisfies it
// through an adapter in NewFromDatabase.
type Backend interface {
	Load(ctx context.Context, userID int64) (string, bool, error)
	Save(ctx context.Context, userID int64, content string) error
	Delete(ctx context.Context, userID int64) error
}

// Store reads and appends user notes through a read cache.
type Store struct {
	backend Backend
	cache   *lru.Cache[int64, string]
	logger  *slog.Logger

	// guards the read-modify-write in Append
	mu sync.Mutex
}

// New creates a Store over backend.
func New(backend Backend, cacheSize int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cache, err := lru.New[int64, string](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &Store{
		backend: backend,
		cache:   cache,
		logger:  logger.With("component", "memory_store"),
	}, nil
}

// Get returns the notes of a user, or "" when none exist or the read fails.
func (s *Store) Get(ctx context.Context, userID int64) string {
	if text, ok := s.cache.Get(userID); ok {
		return text
	}
	text, found, err := s.backend.Load(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load user memory", "user_id", userID, "error", err)
		return ""
	}
	if found {
		s.cache.Add(userID, text)
	}
	return text
}

// Append adds text to the notes of a user. Blank text is ignored. Nothing is
// written when the current notes cannot be read. The cached notes are updated
// even if persisting fails; the error is returned for logging.
func (s *Store) Append(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cache.Get(userID)
	if !ok {
		var err error
		if current, _, err = s.backend.Load(ctx, userID); err != nil {
			return fmt.Errorf("failed to load memory for user %d: %w", userID, err)
		}
	}
	combined := text
	if current != "" {
		combined = current + Separator + text
	}
	s.cache.Add(userID, combined)

	if err := s.backend.Save(ctx, userID, combined); err != nil {
		return fmt.Errorf("failed to persist memory for user %d: %w", userID, err)
	}
	s.logger.DebugContext(ctx, "User memory appended", "user_id", userID, "length", len(combined))
	return nil
}

// Forget deletes every note of a user.
func (s *Store) Forget(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete memory for user %d: %w", userID, err)
	}
	s.cache.Remove(userID)
	s.logger.InfoContext(ctx, "User memory forgotten", "user_id", userID)
	return nil
}
