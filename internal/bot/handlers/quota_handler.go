package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/telegram"
)

// NewQuotaHandler returns a handler for the /quota command.
func NewQuotaHandler(deps HandlerDeps) bot.HandlerFunc {
	return quotaHandler{deps}.Handle
}

type quotaHandler struct {
	deps HandlerDeps
}

func (h quotaHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "quota")
	if !validMessage(ctx, log, update) {
		return
	}
	respond(ctx, log, b, update.Message, h.reply(ctx, update.Message))
}

func (h quotaHandler) reply(ctx context.Context, msg *models.Message) string {
	if !telegram.IsGroup(msg.Chat) {
		return h.deps.Config.Messages.GroupOnly
	}
	s := h.deps.Quota.Snapshot(ctx, msg.From.ID, msg.Chat.ID)
	return fmt.Sprintf(h.deps.Config.Messages.QuotaStatus, s.UserCount, s.UserLimit, s.GuildCount, s.GuildLimit)
}
