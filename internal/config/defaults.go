package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultDBPath    = "storage.db"
	DefaultCacheSize = 1024

	DefaultSendRatePerMinute = 20

	DefaultProvider  = "gemini"
	DefaultAITimeout = 2 * time.Minute

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiVisionModel = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0

	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultOpenAIVisionModel = "gpt-4o-mini"
	DefaultOpenAIImageModel  = "dall-e-3"
	DefaultOpenAIImageSize   = "1024x1024"
	DefaultOpenAITemperature = 1.0

	DefaultCooldown          = 2500 * time.Millisecond
	DefaultMaxThroughput     = 8
	DefaultQueueAckThreshold = 5
	DefaultHistoryLimit      = 15
	DefaultMaxImages         = 5
	DefaultVisionConcurrency = 3

	DefaultUserDailyLimit  = 1
	DefaultGuildDailyLimit = 10

	DefaultPersonalityDir    = "personalities"
	DefaultPersonalityID     = "default"
	DefaultPersonalityMarker = "## Prompt"
)

// DefaultDenylist blocks mass-mention tokens and a baseline of slurs. Operators
// replace it with filter.denylist. Entries are matched as substrings after
// lowercasing and removing spaces and commas, so short slurs that hide inside
// ordinary words are left to the operator.
var DefaultDenylist = []string{
	"@everyone", "@here", "@all", "@channel",
	"nigger", "nigga", "faggot", "tranny", "wetback", "towelhead", "chingchong",
}

// DefaultTasks are the maintenance jobs registered by the scheduler.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"quota_prune":     {Enabled: true, Schedule: "0 5 0 * * *"},
}

// DefaultMessages are the user-facing texts.
var DefaultMessages = MessagesConfig{
	Welcome:            "👋 Hi! Talk to me in this group and I'll answer. Ask me to draw something and I might.",
	Help:               "Commands:\n/memory - show what I remember about you\n/forget - erase what I remember about you\n/quota - today's image usage\n/bind - (admin) answer only in this topic\n/unbind - (admin) answer in every topic\n/personality <id> - (admin) switch personality",
	GeneralError:       "❌ Something went wrong. Please try again later.",
	ImageError:         "🖼️ I couldn't generate that image. Please try again later.",
	EmptyReply:         "🤔 I don't have anything to say to that.",
	Refusal:            "🚫 I can't say that.",
	Cooldown:           "⏱️ Slow down! Try again in %d s.",
	Queued:             "⏳ You're in the queue (%d ahead of you).",
	UserLimit:          "You have reached your daily image limit (%d per day).",
	GuildLimit:         "This group has reached its daily image limit (%d per day).",
	Unauthorized:       "🚫 Access denied.",
	GroupOnly:          "ℹ️ This command only works in groups.",
	MemoryEmpty:        "I don't remember anything about you yet.",
	MemoryHeader:       "What I remember about you:\n\n",
	MemoryForgotten:    "🧹 I forgot everything about you.",
	QuotaStatus:        "Images today: you %d/%d, this group %d/%d.",
	ChannelBound:       "📌 I'll only answer in this topic now.",
	ChannelUnbound:     "📍 I'll answer in every topic now.",
	PersonalitySet:     "🎭 Personality set to %s.",
	PersonalityList:    "Available personalities: %s",
	PersonalityUnknown: "Unknown personality %q. Available: %s",
}

// setDefaults registers default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", true)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.cache_size", DefaultCacheSize)

	v.SetDefault("telegram.require_mention", false)
	v.SetDefault("telegram.send_rate_per_minute", DefaultSendRatePerMinute)

	v.SetDefault("ai.completion_provider", DefaultProvider)
	v.SetDefault("ai.vision_provider", DefaultProvider)
	v.SetDefault("ai.timeout", DefaultAITimeout)

	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.vision_model", DefaultGeminiVisionModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)

	v.SetDefault("openai.base_url", DefaultOpenAIBaseURL)
	v.SetDefault("openai.model", DefaultOpenAIModel)
	v.SetDefault("openai.vision_model", DefaultOpenAIVisionModel)
	v.SetDefault("openai.image_model", DefaultOpenAIImageModel)
	v.SetDefault("openai.image_size", DefaultOpenAIImageSize)
	v.SetDefault("openai.temperature", DefaultOpenAITemperature)

	v.SetDefault("relay.cooldown", DefaultCooldown)
	v.SetDefault("relay.max_throughput", DefaultMaxThroughput)
	v.SetDefault("relay.queue_ack_threshold", DefaultQueueAckThreshold)
	v.SetDefault("relay.history_limit", DefaultHistoryLimit)
	v.SetDefault("relay.max_images", DefaultMaxImages)
	v.SetDefault("relay.vision_concurrency", DefaultVisionConcurrency)

	v.SetDefault("quota.user_daily_limit", DefaultUserDailyLimit)
	v.SetDefault("quota.guild_daily_limit", DefaultGuildDailyLimit)

	v.SetDefault("personality.dir", DefaultPersonalityDir)
	v.SetDefault("personality.default_id", DefaultPersonalityID)
	v.SetDefault("personality.marker", DefaultPersonalityMarker)

	v.SetDefault("filter.denylist", DefaultDenylist)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	m := DefaultMessages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.help", m.Help)
	v.SetDefault("messages.general_error", m.GeneralError)
	v.SetDefault("messages.image_error", m.ImageError)
	v.SetDefault("messages.empty_reply", m.EmptyReply)
	v.SetDefault("messages.refusal", m.Refusal)
	v.SetDefault("messages.cooldown", m.Cooldown)
	v.SetDefault("messages.queued", m.Queued)
	v.SetDefault("messages.user_limit", m.UserLimit)
	v.SetDefault("messages.guild_limit", m.GuildLimit)
	v.SetDefault("messages.unauthorized", m.Unauthorized)
	v.SetDefault("messages.group_only", m.GroupOnly)
	v.SetDefault("messages.memory_empty", m.MemoryEmpty)
	v.SetDefault("messages.memory_header", m.MemoryHeader)
	v.SetDefault("messages.memory_forgotten", m.MemoryForgotten)
	v.SetDefault("messages.quota_status", m.QuotaStatus)
	v.SetDefault("messages.channel_bound", m.ChannelBound)
	v.SetDefault("messages.channel_unbound", m.ChannelUnbound)
	v.SetDefault("messages.personality_set", m.PersonalitySet)
	v.SetDefault("messages.personality_list", m.PersonalityList)
	v.SetDefault("messages.personality_unknown", m.PersonalityUnknown)
}
