package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/relaybot/internal/telegram"
)

// RegisterAllCommands returns every bot command keyed by its slash name.
func RegisterAllCommands(deps HandlerDeps) map[string]telegram.RegisteredHandler {
	command := func(pattern string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) telegram.RegisteredHandler {
		return telegram.RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}
	admin := AdminOnly(deps)

	return map[string]telegram.RegisteredHandler{
		"/start":       command("start", NewStartHandler(deps)),
		"/help":        command("help", NewHelpHandler(deps)),
		"/memory":      command("memory", NewMemoryHandler(deps)),
		"/forget":      command("forget", NewForgetHandler(deps)),
		"/quota":       command("quota", NewQuotaHandler(deps)),
		"/bind":        command("bind", NewBindHandler(deps), admin),
		"/unbind":      command("unbind", NewUnbindHandler(deps), admin),
		"/personality": command("personality", NewPersonalityHandler(deps), admin),
	}
}
