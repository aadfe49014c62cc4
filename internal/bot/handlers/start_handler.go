package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")
	if !validMessage(ctx, log, update) {
		return
	}
	log.InfoContext(ctx, "Handling /start command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)
	respond(ctx, log, b, update.Message, h.reply())
}

func (h startHandler) reply() string {
	welcome := h.deps.Config.Messages.Welcome
	if username := h.deps.Config.Telegram.BotInfo.Username; username != "" {
		welcome = strings.ReplaceAll(welcome, "@botname", "@"+username)
	}
	return welcome
}
