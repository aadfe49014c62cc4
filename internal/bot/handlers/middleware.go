// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that lets only the configured admin user through.
// Others get the unauthorized message.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "AdminOnly")
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}
			if !isAdmin(deps, update.Message.From.ID) {
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", update.Message.From.ID, "chat_id", update.Message.Chat.ID)
				respond(ctx, log, bot, update.Message, deps.Config.Messages.Unauthorized)
				return
			}
			next(ctx, bot, update)
		}
	}
}

func isAdmin(deps HandlerDeps, userID int64) bool {
	return userID == deps.Config.Telegram.AdminUserID
}
