package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

const (
	maxPacedChats = 1000
	limiterTTL    = 10 * time.Minute
	sendTimeout   = 30 * time.Second
	dbSaveTimeout = 5 * time.Second
)

// Sender is the part of *bot.Bot used for outbound messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// MessageSaver persists delivered bot messages into the history.
type MessageSaver interface {
	SaveMessage(ctx context.Context, message *database.Message) error
}

// Sink implements relay.Sink. Messages to one chat are paced to stay under
// Telegram's per-group limits; delivered texts are saved to the history.
type Sink struct {
	api      Sender
	saver    MessageSaver
	botInfo  config.BotInfo
	log      *slog.Logger
	limiters *expirable.LRU[int64, *rate.Limiter]
	rate     rate.Limit
	burst    int
	now      func() time.Time

	// guards get-or-create on limiters
	mu sync.Mutex
}

// NewSink creates a Sink allowing perMinute messages per chat.
func NewSink(api Sender, saver MessageSaver, botInfo config.BotInfo, perMinute int, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	perMinute = max(perMinute, 1)
	return &Sink{
		api:      api,
		saver:    saver,
		botInfo:  botInfo,
		log:      logger.With("component", "telegram_sink"),
		limiters: expirable.NewLRU[int64, *rate.Limiter](maxPacedChats, nil, limiterTTL),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    max(perMinute/10, 1),
		now:      time.Now,
	}
}

// limiterFor returns the pacing limiter of chatID, creating it on first use.
func (s *Sink) limiterFor(chatID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters.Get(chatID)
	if !ok {
		limiter = rate.NewLimiter(s.rate, s.burst)
		s.limiters.Add(chatID, limiter)
	}
	return limiter
}

// wait blocks until chatID may receive another message.
func (s *Sink) wait(ctx context.Context, chatID int64) error {
	if err := s.limiterFor(chatID).Wait(ctx); err != nil {
		return fmt.Errorf("send pacing for chat %d: %w", chatID, err)
	}
	return nil
}

func replyParams(target relay.Target) *models.ReplyParameters {
	if target.ReplyTo <= 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: target.ReplyTo, AllowSendingWithoutReply: true}
}

// SendTyping shows the typing indicator. It is not paced.
func (s *Sink) SendTyping(ctx context.Context, target relay.Target) error {
	_, err := s.api.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID:          target.GuildID,
		MessageThreadID: int(target.ChannelID),
		Action:          models.ChatActionTyping,
	})
	return err
}

// SendText delivers text as a reply and records it in the history.
func (s *Sink) SendText(ctx context.Context, target relay.Target, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.wait(ctx, target.GuildID); err != nil {
		return err
	}
	sent, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          target.GuildID,
		MessageThreadID: int(target.ChannelID),
		Text:            text,
		ReplyParameters: replyParams(target),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	s.record(ctx, target, sent, text)
	return nil
}

// SendImage delivers the image at imageURL as a reply.
func (s *Sink) SendImage(ctx context.Context, target relay.Target, imageURL string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.wait(ctx, target.GuildID); err != nil {
		return err
	}
	sent, err := s.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:          target.GuildID,
		MessageThreadID: int(target.ChannelID),
		Photo:           &models.InputFileString{Data: imageURL},
		ReplyParameters: replyParams(target),
	})
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	s.record(ctx, target, sent, "")
	return nil
}

func (s *Sink) record(ctx context.Context, target relay.Target, sent *models.Message, text string) {
	if s.saver == nil {
		return
	}
	rec := &database.Message{
		ChatID:     target.GuildID,
		ThreadID:   target.ChannelID,
		UserID:     s.botInfo.ID,
		AuthorName: "@" + s.botInfo.Username,
		Content:    text,
		Timestamp:  s.now().UTC(),
	}
	if sent != nil {
		for _, a := range Attachments(sent) {
			rec.Attachments = append(rec.Attachments, database.Attachment{FileID: a.FileID, MIMEType: a.MIMEType})
		}
		if sent.Date > 0 {
			rec.Timestamp = time.Unix(int64(sent.Date), 0).UTC()
		}
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbSaveTimeout)
	defer cancel()
	if err := s.saver.SaveMessage(saveCtx, rec); err != nil {
		s.log.ErrorContext(ctx, "Failed to save bot reply", "chat_id", target.GuildID, "error", err)
	}
}
