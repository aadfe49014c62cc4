package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewMemoryHandler returns a handler for the /memory command, which shows the
// sender what the bot remembers about them.
func NewMemoryHandler(deps HandlerDeps) bot.HandlerFunc {
	return memoryHandler{deps}.Handle
}

type memoryHandler struct {
	deps HandlerDeps
}

func (h memoryHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "memory")
	if !validMessage(ctx, log, update) {
		return
	}
	respond(ctx, log, b, update.Message, h.reply(ctx, update.Message))
}

func (h memoryHandler) reply(ctx context.Context, msg *models.Message) string {
	notes := h.deps.Memory.Get(ctx, msg.From.ID)
	if notes == "" {
		return h.deps.Config.Messages.MemoryEmpty
	}
	return h.deps.Config.Messages.MemoryHeader + notes
}

// NewForgetHandler returns a handler for the /forget command, the only path
// that removes a user's notes.
func NewForgetHandler(deps HandlerDeps) bot.HandlerFunc {
	return forgetHandler{deps}.Handle
}

type forgetHandler struct {
	deps HandlerDeps
}

func (h forgetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "forget")
	if !validMessage(ctx, log, update) {
		return
	}
	respond(ctx, log, b, update.Message, h.reply(ctx, log, update.Message))
}

func (h forgetHandler) reply(ctx context.Context, log *slog.Logger, msg *models.Message) string {
	userID := msg.From.ID
	if err := h.deps.Memory.Forget(ctx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to forget user memory", "user_id", userID, "error", err)
		return h.deps.Config.Messages.GeneralError
	}
	log.InfoContext(ctx, "User memory forgotten", "user_id", userID)
	return h.deps.Config.Messages.MemoryForgotten
}
