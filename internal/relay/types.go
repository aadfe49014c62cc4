// Package relay implements the request pipeline between a group chat and the
// generative backends: admission, context assembly, queueing, and response
// orchestration.
package relay

import (
	"context"
	"time"

	"github.com/edgard/relaybot/internal/quota"
)

// Attachment is a file attached to a chat message.
type Attachment struct {
	FileID   string
	MIMEType string
}

// Event is an inbound chat message.
type Event struct {
	AuthorID    int64
	AuthorName  string
	IsBot       bool
	GuildID     int64
	GuildTitle  string
	IsGroup     bool
	ChannelID   int64
	MessageID   int
	Text        string
	Attachments []Attachment
	MentionsBot bool
	Timestamp   time.Time
}

// HistoryMessage is one message of the recent channel history.
type HistoryMessage struct {
	AuthorID    int64
	AuthorName  string
	Text        string
	Attachments []Attachment
	Timestamp   time.Time
}

// ImageDescription is the vision backend's description of one image in the history.
type ImageDescription struct {
	SourceURL       string
	Description     string
	OriginatingText string
	AuthorName      string
	IsFromRequestor bool
}

// QueuedRequest carries everything the orchestrator needs to answer one event.
// It is not modified after assembly.
type QueuedRequest struct {
	ID                string
	RequestorID       int64
	RequestorName     string
	GuildID           int64
	GuildTitle        string
	ChannelID         int64
	MessageID         int
	TriggerText       string
	RecentHistory     []HistoryMessage
	Members           []string
	ImageDescriptions []ImageDescription
	PersonalityText   string
	Memory            string
	Quota             quota.Snapshot
	EnqueuedAt        time.Time
}

// Target addresses an outbound message.
type Target struct {
	GuildID   int64
	ChannelID int64
	ReplyTo   int
}

// Target returns the target that replies to the request's triggering message.
func (r *QueuedRequest) Target() Target {
	return Target{GuildID: r.GuildID, ChannelID: r.ChannelID, ReplyTo: r.MessageID}
}

// GuildSettings is the per-guild configuration the pipeline reads.
type GuildSettings struct {
	BoundChannelID *int64
	PersonalityID  string
}

// Bound reports whether the guild restricts the relay to one channel.
func (s GuildSettings) Bound() bool {
	return s.BoundChannelID != nil
}

// HistorySource returns the last limit messages of a channel, oldest first.
type HistorySource interface {
	RecentMessages(ctx context.Context, guildID, channelID int64, limit int) ([]HistoryMessage, error)
}

// MemberSource lists the display names of a guild's members.
type MemberSource interface {
	Members(ctx context.Context, guildID int64) ([]string, error)
}

// AttachmentResolver turns an attachment into a fetchable URL.
type AttachmentResolver interface {
	ResolveURL(ctx context.Context, fileID string) (string, error)
}

// Describer describes the image at imageURL. prompt carries the text of the
// message the image came with.
type Describer interface {
	Describe(ctx context.Context, imageURL, prompt string) (string, error)
}

// GuildSettingsSource reads guild configuration.
type GuildSettingsSource interface {
	Settings(ctx context.Context, guildID int64) GuildSettings
}

// PersonalitySource returns the persona prompt for a personality id.
type PersonalitySource interface {
	Text(ctx context.Context, id string) (string, error)
}

// MemoryReader returns the notes kept about a user.
type MemoryReader interface {
	Get(ctx context.Context, userID int64) string
}

// MemoryWriter appends to the notes kept about a user.
type MemoryWriter interface {
	Append(ctx context.Context, userID int64, text string) error
}

// QuotaReader reports current quota usage.
type QuotaReader interface {
	Snapshot(ctx context.Context, userID, guildID int64) quota.Snapshot
}

// QuotaLedger gates and accounts image generation.
type QuotaLedger interface {
	Check(ctx context.Context, userID, guildID int64) quota.Verdict
	Increment(ctx context.Context, userID, guildID int64)
	Decrement(ctx context.Context, userID, guildID int64)
}

// Completer runs one completion constrained to the decision schema and returns
// the raw JSON text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageGenerator creates an image from a prompt and returns its URL. An empty
// URL with a nil error means the backend produced nothing.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sink delivers outbound messages to the chat platform.
type Sink interface {
	SendTyping(ctx context.Context, target Target) error
	SendText(ctx context.Context, target Target, text string) error
	SendImage(ctx context.Context, target Target, imageURL string) error
}

// Messages are the user-facing texts the pipeline sends.
type Messages struct {
	GeneralError string
	ImageError   string
	EmptyReply   string
	Refusal      string
	Cooldown     string // %d: seconds to wait
	Queued       string // %d: requests ahead
}
