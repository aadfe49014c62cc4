package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/relay"
	"github.com/edgard/relaybot/internal/telegram"
)

// NewMessageHandler returns the default handler. It records every group
// message in the history and submits eligible ones to the relay pipeline.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.process(ctx, update.Message)
}

// process handles msg and reports whether it was submitted.
func (h messageHandler) process(ctx context.Context, msg *models.Message) bool {
	log := h.deps.Logger.With("handler", "message")

	ev, ok := telegram.EventFromMessage(msg, h.deps.Config.Telegram.BotInfo)
	if !ok || !ev.IsGroup {
		return false
	}
	log = log.With("chat_id", ev.GuildID, "user_id", ev.AuthorID, "message_id", ev.MessageID)

	if !strings.HasPrefix(strings.TrimSpace(ev.Text), "/") && (ev.Text != "" || len(ev.Attachments) > 0) {
		h.record(ctx, log, ev)
	}

	settings := h.deps.Guilds.Settings(ctx, ev.GuildID)
	if eligible, reason := relay.Eligible(ev, settings, h.deps.Config.Telegram.RequireMention); !eligible {
		log.DebugContext(ctx, "Message not relayed", "reason", reason)
		return false
	}

	outcome := h.deps.Pipeline.Submit(ctx, ev)
	log.DebugContext(ctx, "Message submitted", "queued", outcome == relay.Queued)
	return true
}

func (h messageHandler) record(ctx context.Context, log *slog.Logger, ev relay.Event) {
	saveCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()
	if err := h.deps.History.SaveMessage(saveCtx, telegram.HistoryRecord(ev)); err != nil {
		log.ErrorContext(ctx, "Failed to save message", "error", err)
	}
}
