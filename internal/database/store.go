package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrInvalidScope is returned for a quota scope other than ScopeUser or ScopeGuild.
var ErrInvalidScope = errors.New("invalid quota scope")

// Store defines the persistence operations used by the relay.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a new message record.
	SaveMessage(ctx context.Context, message *Message) error

	// GetRecentMessages returns the latest limit messages of a chat topic, oldest first.
	GetRecentMessages(ctx context.Context, chatID, threadID int64, limit int) ([]*Message, error)

	// ListChatAuthors returns the distinct author names seen in a chat, most recent first.
	ListChatAuthors(ctx context.Context, chatID int64, limit int) ([]string, error)

	// GetUserMemory returns the memory of a user. Returns nil, nil if none is stored.
	GetUserMemory(ctx context.Context, userID int64) (*UserMemory, error)

	// SaveUserMemory replaces the full memory text of a user.
	SaveUserMemory(ctx context.Context, userID int64, content string) error

	// DeleteUserMemory removes the memory of a user.
	DeleteUserMemory(ctx context.Context, userID int64) error

	// GetQuotaRecord returns the stored counter. Returns nil, nil if none is stored.
	GetQuotaRecord(ctx context.Context, scope string, scopeID int64) (*QuotaRecord, error)

	// UpdateQuotaRecord reads the counter, applies mutate, and writes it back in one transaction.
	// mutate receives a zero-count record when none is stored.
	UpdateQuotaRecord(ctx context.Context, scope string, scopeID int64, mutate func(*QuotaRecord)) (*QuotaRecord, error)

	// DeleteQuotaRecordsBefore removes counters whose day is before day.
	DeleteQuotaRecordsBefore(ctx context.Context, day string) (int64, error)

	// GetGuildConfig returns the stored config of a guild. Returns nil, nil if none is stored.
	GetGuildConfig(ctx context.Context, guildID int64) (*GuildConfig, error)

	// SaveGuildConfig inserts or replaces the config of a guild.
	SaveGuildConfig(ctx context.Context, cfg *GuildConfig) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage inserts a new message record and sets its ID.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.ChatID == 0 {
		return fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.Timestamp.IsZero() {
		return fmt.Errorf("message must have a non-zero timestamp")
	}

	message.Timestamp = message.Timestamp.UTC()
	message.CreatedAt = time.Now().UTC()
	if message.Attachments == nil {
		message.Attachments = Attachments{}
	}

	query := `
        INSERT INTO messages (chat_id, thread_id, user_id, author_name, content, attachments, timestamp, created_at)
        VALUES (:chat_id, :thread_id, :user_id, :author_name, :content, :attachments, :timestamp, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "chat_id", message.ChatID, "user_id", message.UserID, "error", err)
		return fmt.Errorf("failed to save message (chat %d, user %d): %w", message.ChatID, message.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row ids are positive
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message", "chat_id", message.ChatID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message saved", "chat_id", message.ChatID, "thread_id", message.ThreadID, "message_id", message.ID)
	return nil
}

// GetRecentMessages returns the latest limit messages of a chat topic, oldest first.
func (s *sqlxStore) GetRecentMessages(ctx context.Context, chatID, threadID int64, limit int) ([]*Message, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if limit <= 0 {
		return []*Message{}, nil
	}

	query := `
        SELECT id, chat_id, thread_id, user_id, author_name, content, attachments, timestamp, created_at
        FROM messages
        WHERE chat_id = ? AND thread_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?;
    `
	var messages []*Message
	if err := s.db.SelectContext(ctx, &messages, query, chatID, threadID, limit); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error getting recent messages", "chat_id", chatID, "thread_id", threadID, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for chat %d: %w", chatID, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	s.logger.DebugContext(ctx, "Fetched recent messages", "chat_id", chatID, "thread_id", threadID, "count", len(messages))
	return messages, nil
}

// ListChatAuthors returns distinct author names seen in a chat, most recent first.
func (s *sqlxStore) ListChatAuthors(ctx context.Context, chatID int64, limit int) ([]string, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}

	query := `
        SELECT author_name
        FROM messages
        WHERE chat_id = ? AND author_name != ''
        GROUP BY author_name
        ORDER BY MAX(timestamp) DESC
        LIMIT ?;
    `
	var names []string
	if err := s.db.SelectContext(ctx, &names, query, chatID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing chat authors", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to list authors for chat %d: %w", chatID, err)
	}
	return names, nil
}

// GetUserMemory returns the memory of a user, or nil when none is stored.
func (s *sqlxStore) GetUserMemory(ctx context.Context, userID int64) (*UserMemory, error) {
	var memory UserMemory
	err := s.db.GetContext(ctx, &memory, `SELECT user_id, content, updated_at FROM user_memories WHERE user_id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user memory", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get memory for user %d: %w", userID, err)
	}
	return &memory, nil
}

// SaveUserMemory replaces the full memory text of a user.
func (s *sqlxStore) SaveUserMemory(ctx context.Context, userID int64, content string) error {
	query := `
        INSERT INTO user_memories (user_id, content, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at;
    `
	if _, err := s.db.ExecContext(ctx, query, userID, content, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user memory", "user_id", userID, "error", err)
		return fmt.Errorf("failed to save memory for user %d: %w", userID, err)
	}
	s.logger.DebugContext(ctx, "User memory saved", "user_id", userID, "length", len(content))
	return nil
}

// DeleteUserMemory removes the memory of a user.
func (s *sqlxStore) DeleteUserMemory(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_memories WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user memory", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete memory for user %d: %w", userID, err)
	}
	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted user memory", "user_id", userID, "count", count)
	return nil
}

func validScope(scope string) error {
	if scope != ScopeUser && scope != ScopeGuild {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return nil
}

// GetQuotaRecord returns the stored counter, or nil when none is stored.
func (s *sqlxStore) GetQuotaRecord(ctx context.Context, scope string, scopeID int64) (*QuotaRecord, error) {
	if err := validScope(scope); err != nil {
		return nil, err
	}

	var record QuotaRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT scope, scope_id, day, count, updated_at FROM quota_records WHERE scope = ? AND scope_id = ?`,
		scope, scopeID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting quota record", "scope", scope, "scope_id", scopeID, "error", err)
		return nil, fmt.Errorf("failed to get quota record %s/%d: %w", scope, scopeID, err)
	}
	return &record, nil
}

// UpdateQuotaRecord performs a read-modify-write of one counter inside a transaction.
func (s *sqlxStore) UpdateQuotaRecord(ctx context.Context, scope string, scopeID int64, mutate func(*QuotaRecord)) (*QuotaRecord, error) {
	if err := validScope(scope); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin quota transaction", "scope", scope, "scope_id", scopeID, "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	record := QuotaRecord{Scope: scope, ScopeID: scopeID}
	err = tx.GetContext(ctx, &record,
		`SELECT scope, scope_id, day, count, updated_at FROM quota_records WHERE scope = ? AND scope_id = ?`,
		scope, scopeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read quota record %s/%d: %w", scope, scopeID, err)
	}

	mutate(&record)
	record.Scope = scope
	record.ScopeID = scopeID
	if record.Count < 0 {
		record.Count = 0
	}
	record.UpdatedAt = time.Now().UTC()

	query := `
        INSERT INTO quota_records (scope, scope_id, day, count, updated_at)
        VALUES (:scope, :scope_id, :day, :count, :updated_at)
        ON CONFLICT(scope, scope_id) DO UPDATE SET day = excluded.day, count = excluded.count, updated_at = excluded.updated_at;
    `
	if _, err := tx.NamedExecContext(ctx, query, &record); err != nil {
		s.logger.ErrorContext(ctx, "Error writing quota record", "scope", scope, "scope_id", scopeID, "error", err)
		return nil, fmt.Errorf("failed to write quota record %s/%d: %w", scope, scopeID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quota transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Quota record updated", "scope", scope, "scope_id", scopeID, "day", record.Day, "count", record.Count)
	return &record, nil
}

// DeleteQuotaRecordsBefore removes counters whose day is before day.
func (s *sqlxStore) DeleteQuotaRecordsBefore(ctx context.Context, day string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quota_records WHERE day < ?`, day)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning quota records", "day", day, "error", err)
		return 0, fmt.Errorf("failed to prune quota records before %s: %w", day, err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

// GetGuildConfig returns the stored config of a guild, or nil when none is stored.
func (s *sqlxStore) GetGuildConfig(ctx context.Context, guildID int64) (*GuildConfig, error) {
	var cfg GuildConfig
	err := s.db.GetContext(ctx, &cfg,
		`SELECT guild_id, bound_channel_id, personality_id, updated_at FROM guild_configs WHERE guild_id = ?`, guildID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting guild config", "guild_id", guildID, "error", err)
		return nil, fmt.Errorf("failed to get config for guild %d: %w", guildID, err)
	}
	return &cfg, nil
}

// SaveGuildConfig inserts or replaces the config of a guild.
func (s *sqlxStore) SaveGuildConfig(ctx context.Context, cfg *GuildConfig) error {
	if cfg == nil {
		return fmt.Errorf("cannot save nil guild config")
	}
	cfg.UpdatedAt = time.Now().UTC()

	query := `
        INSERT INTO guild_configs (guild_id, bound_channel_id, personality_id, updated_at)
        VALUES (:guild_id, :bound_channel_id, :personality_id, :updated_at)
        ON CONFLICT(guild_id) DO UPDATE SET
            bound_channel_id = excluded.bound_channel_id,
            personality_id = excluded.personality_id,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, cfg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving guild config", "guild_id", cfg.GuildID, "error", err)
		return fmt.Errorf("failed to save config for guild %d: %w", cfg.GuildID, err)
	}
	s.logger.InfoContext(ctx, "Guild config saved", "guild_id", cfg.GuildID, "personality_id", cfg.PersonalityID,
		"bound_channel_id", cfg.BoundChannelID.Int64, "bound", cfg.BoundChannelID.Valid)
	return nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
