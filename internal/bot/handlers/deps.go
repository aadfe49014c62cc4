package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/quota"
	"github.com/edgard/relaybot/internal/relay"
)

// MessageSaver persists incoming messages into the history.
type MessageSaver interface {
	SaveMessage(ctx context.Context, message *database.Message) error
}

// MemoryStore reads and erases per-user notes.
type MemoryStore interface {
	Get(ctx context.Context, userID int64) string
	Forget(ctx context.Context, userID int64) error
}

// QuotaReader reports today's image usage.
type QuotaReader interface {
	Snapshot(ctx context.Context, userID, guildID int64) quota.Snapshot
}

// GuildRegistry reads and changes per-group settings.
type GuildRegistry interface {
	Settings(ctx context.Context, guildID int64) relay.GuildSettings
	Bind(ctx context.Context, guildID, channelID int64) error
	Unbind(ctx context.Context, guildID int64) error
	SetPersonality(ctx context.Context, guildID int64, id string) error
}

// PersonalityCatalog lists the available personalities.
type PersonalityCatalog interface {
	List() ([]string, error)
	Exists(id string) bool
}

// Submitter hands eligible events to the relay pipeline.
type Submitter interface {
	Submit(ctx context.Context, ev relay.Event) relay.Outcome
}

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	History       MessageSaver
	Memory        MemoryStore
	Quota         QuotaReader
	Guilds        GuildRegistry
	Personalities PersonalityCatalog
	Pipeline      Submitter
}
