package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Message is a chat message seen or sent by the bot. The relay reads its
// history window from this table because the Bot API cannot fetch history.
type Message struct {
	ID          uint        `db:"id"`
	ChatID      int64       `db:"chat_id"`
	ThreadID    int64       `db:"thread_id"`
	UserID      int64       `db:"user_id"`
	AuthorName  string      `db:"author_name"`
	Content     string      `db:"content"`
	Attachments Attachments `db:"attachments"`
	Timestamp   time.Time   `db:"timestamp"`
	CreatedAt   time.Time   `db:"created_at"`
}

// Attachment references a file stored on the chat platform.
type Attachment struct {
	FileID   string `json:"file_id"`
	MIMEType string `json:"mime_type"`
}

// Attachments is stored as a JSON array column.
type Attachments []Attachment

// Value implements driver.Valuer.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Attachment(a))
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Attachments) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported attachments column type %T", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]Attachment)(a))
}

// UserMemory is the free-text note blob kept for one user.
type UserMemory struct {
	UserID    int64     `db:"user_id"`
	Content   string    `db:"content"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Quota scopes.
const (
	ScopeUser  = "user"
	ScopeGuild = "guild"
)

// QuotaRecord is the daily counter of one (scope, id) pair. Day is a UTC
// calendar date formatted as 2006-01-02.
type QuotaRecord struct {
	Scope     string    `db:"scope"`
	ScopeID   int64     `db:"scope_id"`
	Day       string    `db:"day"`
	Count     int       `db:"count"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GuildConfig is the per-group relay configuration.
type GuildConfig struct {
	GuildID        int64         `db:"guild_id"`
	BoundChannelID sql.NullInt64 `db:"bound_channel_id"`
	PersonalityID  string        `db:"personality_id"`
	UpdatedAt      time.Time     `db:"updated_at"`
}
