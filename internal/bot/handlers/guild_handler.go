package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/telegram"
)

// NewBindHandler returns a handler for the /bind command. The bot then answers
// only in the topic the command was sent from.
func NewBindHandler(deps HandlerDeps) bot.HandlerFunc {
	return guildHandler{deps: deps, name: "bind", apply: guildHandler.bind}.Handle
}

// NewUnbindHandler returns a handler for the /unbind command.
func NewUnbindHandler(deps HandlerDeps) bot.HandlerFunc {
	return guildHandler{deps: deps, name: "unbind", apply: guildHandler.unbind}.Handle
}

// NewPersonalityHandler returns a handler for the /personality command. Without
// an argument it lists the available personalities.
func NewPersonalityHandler(deps HandlerDeps) bot.HandlerFunc {
	return guildHandler{deps: deps, name: "personality", apply: guildHandler.personality}.Handle
}

// guildHandler runs one group settings command.
type guildHandler struct {
	deps  HandlerDeps
	name  string
	apply func(h guildHandler, ctx context.Context, log *slog.Logger, msg *models.Message) string
}

func (h guildHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)
	if !validMessage(ctx, log, update) {
		return
	}
	respond(ctx, log, b, update.Message, h.reply(ctx, log, update.Message))
}

func (h guildHandler) reply(ctx context.Context, log *slog.Logger, msg *models.Message) string {
	if !telegram.IsGroup(msg.Chat) {
		return h.deps.Config.Messages.GroupOnly
	}
	log.InfoContext(ctx, "Handling group settings command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	return h.apply(h, ctx, log, msg)
}

func (h guildHandler) bind(ctx context.Context, log *slog.Logger, msg *models.Message) string {
	if err := h.deps.Guilds.Bind(ctx, msg.Chat.ID, telegram.ThreadID(msg)); err != nil {
		log.ErrorContext(ctx, "Failed to bind channel", "chat_id", msg.Chat.ID, "error", err)
		return h.deps.Config.Messages.GeneralError
	}
	return h.deps.Config.Messages.ChannelBound
}

func (h guildHandler) unbind(ctx context.Context, log *slog.Logger, msg *models.Message) string {
	if err := h.deps.Guilds.Unbind(ctx, msg.Chat.ID); err != nil {
		log.ErrorContext(ctx, "Failed to unbind channel", "chat_id", msg.Chat.ID, "error", err)
		return h.deps.Config.Messages.GeneralError
	}
	return h.deps.Config.Messages.ChannelUnbound
}

func (h guildHandler) personality(ctx context.Context, log *slog.Logger, msg *models.Message) string {
	messages := h.deps.Config.Messages

	ids, err := h.deps.Personalities.List()
	if err != nil {
		log.ErrorContext(ctx, "Failed to list personalities", "error", err)
		return messages.GeneralError
	}
	available := strings.Join(ids, ", ")

	id := commandArgs(telegram.MessageText(msg))
	if id == "" {
		return fmt.Sprintf(messages.PersonalityList, available)
	}
	if !h.deps.Personalities.Exists(id) {
		return fmt.Sprintf(messages.PersonalityUnknown, id, available)
	}
	if err := h.deps.Guilds.SetPersonality(ctx, msg.Chat.ID, id); err != nil {
		log.ErrorContext(ctx, "Failed to set personality", "chat_id", msg.Chat.ID, "personality_id", id, "error", err)
		return messages.GeneralError
	}
	return fmt.Sprintf(messages.PersonalitySet, id)
}
