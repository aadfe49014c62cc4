// Package config provides configuration loading, validation, and management
// for the relay bot. It reads a YAML file, applies BOT_* environment
// overrides, fills defaults, and validates the result.
package config

import "time"

// Config defines the application configuration parameters for all components.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	AI          AIConfig          `mapstructure:"ai"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Quota       QuotaConfig       `mapstructure:"quota"`
	Personality PersonalityConfig `mapstructure:"personality"`
	Filter      FilterConfig      `mapstructure:"filter"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Messages    MessagesConfig    `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path      string `mapstructure:"path"       validate:"required"`
	CacheSize int    `mapstructure:"cache_size" validate:"min=1"`
}

// TelegramConfig holds the platform connection settings.
type TelegramConfig struct {
	Token          string `mapstructure:"token"           validate:"required"`
	AdminUserID    int64  `mapstructure:"admin_user_id"   validate:"required,gt=0"`
	RequireMention bool   `mapstructure:"require_mention"`
	// SendRatePerMinute paces outbound messages per chat; Telegram allows roughly 20/min in groups.
	SendRatePerMinute int `mapstructure:"send_rate_per_minute" validate:"min=1"`

	// BotInfo is filled at startup from getMe and never read from the file.
	BotInfo BotInfo `mapstructure:"-"`
}

// BotInfo identifies the running bot account.
type BotInfo struct {
	ID        int64
	Username  string
	FirstName string
}

// AIConfig selects the backend for each call type.
type AIConfig struct {
	CompletionProvider string        `mapstructure:"completion_provider" validate:"oneof=gemini openai"`
	VisionProvider     string        `mapstructure:"vision_provider"     validate:"oneof=gemini openai"`
	Timeout            time.Duration `mapstructure:"timeout"             validate:"min=1s,max=10m"`
}

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"        validate:"required"`
	VisionModel string  `mapstructure:"vision_model" validate:"required"`
	Temperature float32 `mapstructure:"temperature"  validate:"min=0,max=2"`
}

// OpenAIConfig configures the OpenAI client used for image generation and,
// optionally, completion and vision.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"      validate:"required"`
	BaseURL     string  `mapstructure:"base_url"     validate:"required,url"`
	Model       string  `mapstructure:"model"        validate:"required"`
	VisionModel string  `mapstructure:"vision_model" validate:"required"`
	ImageModel  string  `mapstructure:"image_model"  validate:"required"`
	ImageSize   string  `mapstructure:"image_size"   validate:"required"`
	Temperature float32 `mapstructure:"temperature"  validate:"min=0,max=2"`
}

// RelayConfig tunes the intake pipeline.
type RelayConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"            validate:"min=0"`
	MaxThroughput     int           `mapstructure:"max_throughput"      validate:"min=1,max=100"`
	QueueAckThreshold int           `mapstructure:"queue_ack_threshold" validate:"min=0"`
	HistoryLimit      int           `mapstructure:"history_limit"       validate:"min=1,max=100"`
	MaxImages         int           `mapstructure:"max_images"          validate:"min=0,max=20"`
	VisionConcurrency int           `mapstructure:"vision_concurrency"  validate:"min=1"`
}

// QuotaConfig sets the daily image generation limits.
type QuotaConfig struct {
	UserDailyLimit  int `mapstructure:"user_daily_limit"  validate:"min=0"`
	GuildDailyLimit int `mapstructure:"guild_daily_limit" validate:"min=0"`
}

// PersonalityConfig locates the personality prompt files.
type PersonalityConfig struct {
	Dir       string `mapstructure:"dir"        validate:"required"`
	DefaultID string `mapstructure:"default_id" validate:"required"`
	Marker    string `mapstructure:"marker"     validate:"required"`
}

// FilterConfig lists substrings that block a reply.
type FilterConfig struct {
	Denylist []string `mapstructure:"denylist"`
}

// SchedulerConfig holds the maintenance task schedules keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"           validate:"required"`
	Help               string `mapstructure:"help"              validate:"required"`
	GeneralError       string `mapstructure:"general_error"     validate:"required"`
	ImageError         string `mapstructure:"image_error"       validate:"required"`
	EmptyReply         string `mapstructure:"empty_reply"       validate:"required"`
	Refusal            string `mapstructure:"refusal"           validate:"required"`
	Cooldown           string `mapstructure:"cooldown"          validate:"required"`
	Queued             string `mapstructure:"queued"            validate:"required"`
	UserLimit          string `mapstructure:"user_limit"        validate:"required"`
	GuildLimit         string `mapstructure:"guild_limit"       validate:"required"`
	Unauthorized       string `mapstructure:"unauthorized"      validate:"required"`
	GroupOnly          string `mapstructure:"group_only"        validate:"required"`
	MemoryEmpty        string `mapstructure:"memory_empty"      validate:"required"`
	MemoryHeader       string `mapstructure:"memory_header"     validate:"required"`
	MemoryForgotten    string `mapstructure:"memory_forgotten"  validate:"required"`
	QuotaStatus        string `mapstructure:"quota_status"      validate:"required"`
	ChannelBound       string `mapstructure:"channel_bound"     validate:"required"`
	ChannelUnbound     string `mapstructure:"channel_unbound"   validate:"required"`
	PersonalitySet     string `mapstructure:"personality_set"   validate:"required"`
	PersonalityList    string `mapstructure:"personality_list"  validate:"required"`
	PersonalityUnknown string `mapstructure:"personality_unknown" validate:"required"`
}
