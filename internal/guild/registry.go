// Package guild stores per-group settings: the bound topic and the personality.
package guild

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

// ConfigStore is the persistence the registry needs. database.Store satisfies it.
type ConfigStore interface {
	GetGuildConfig(ctx context.Context, guildID int64) (*database.GuildConfig, error)
	SaveGuildConfig(ctx context.Context, cfg *database.GuildConfig) error
}

// Registry reads and updates guild settings through a read cache. Updates are
// visible to the next Settings call for that guild.
type Registry struct {
	store              ConfigStore
	defaultPersonality string
	cache              *lru.Cache[int64, relay.GuildSettings]
	log                *slog.Logger

	mu sync.Mutex
}

// NewRegistry creates a Registry. Guilds without a stored config use defaultPersonality.
func NewRegistry(store ConfigStore, defaultPersonality string, cacheSize int, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cache, err := lru.New[int64, relay.GuildSettings](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create guild cache: %w", err)
	}
	return &Registry{
		store:              store,
		defaultPersonality: defaultPersonality,
		cache:              cache,
		log:                logger.With("component", "guild_registry"),
	}, nil
}

// Settings returns the settings of a guild. Read failures yield the defaults.
func (r *Registry) Settings(ctx context.Context, guildID int64) relay.GuildSettings {
	if s, ok := r.cache.Get(guildID); ok {
		return s
	}
	cfg, err := r.store.GetGuildConfig(ctx, guildID)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to read guild config, using defaults", "guild_id", guildID, "error", err)
		return r.defaults()
	}
	s := r.fromConfig(cfg)
	r.cache.Add(guildID, s)
	return s
}

// Bind restricts the relay in a guild to channelID.
func (r *Registry) Bind(ctx context.Context, guildID, channelID int64) error {
	return r.update(ctx, guildID, func(s *relay.GuildSettings) {
		s.BoundChannelID = &channelID
	})
}

// Unbind lets the relay answer in every channel of a guild.
func (r *Registry) Unbind(ctx context.Context, guildID int64) error {
	return r.update(ctx, guildID, func(s *relay.GuildSettings) {
		s.BoundChannelID = nil
	})
}

// SetPersonality selects the personality of a guild.
func (r *Registry) SetPersonality(ctx context.Context, guildID int64, id string) error {
	return r.update(ctx, guildID, func(s *relay.GuildSettings) {
		s.PersonalityID = id
	})
}

// update applies mutate and persists the result. The cache keeps the new value
// even when the write fails.
func (r *Registry) update(ctx context.Context, guildID int64, mutate func(*relay.GuildSettings)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.Settings(ctx, guildID)
	mutate(&s)
	r.cache.Add(guildID, s)

	cfg := &database.GuildConfig{GuildID: guildID, PersonalityID: s.PersonalityID}
	if s.BoundChannelID != nil {
		cfg.BoundChannelID = sql.NullInt64{Int64: *s.BoundChannelID, Valid: true}
	}
	if err := r.store.SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save guild config %d: %w", guildID, err)
	}
	r.log.InfoContext(ctx, "Guild settings updated", "guild_id", guildID, "personality_id", s.PersonalityID, "bound", s.Bound())
	return nil
}

func (r *Registry) defaults() relay.GuildSettings {
	return relay.GuildSettings{PersonalityID: r.defaultPersonality}
}

func (r *Registry) fromConfig(cfg *database.GuildConfig) relay.GuildSettings {
	s := r.defaults()
	if cfg == nil {
		return s
	}
	if cfg.PersonalityID != "" {
		s.PersonalityID = cfg.PersonalityID
	}
	if cfg.BoundChannelID.Valid {
		id := cfg.BoundChannelID.Int64
		s.BoundChannelID = &id
	}
	return s
}
