package relay

import "strings"

// Skip reasons returned by Eligible.
const (
	SkipNone       = ""
	SkipEmpty      = "empty_text"
	SkipBot        = "bot_author"
	SkipNotGroup   = "not_group"
	SkipCommand    = "command"
	SkipOtherTopic = "unbound_channel"
	SkipNoMention  = "no_mention"
)

// Eligible decides whether ev enters the pipeline and, if not, why.
// requireMention applies only to guilds without a bound channel.
func Eligible(ev Event, settings GuildSettings, requireMention bool) (bool, string) {
	text := strings.TrimSpace(ev.Text)
	switch {
	case text == "":
		return false, SkipEmpty
	case ev.IsBot:
		return false, SkipBot
	case !ev.IsGroup:
		return false, SkipNotGroup
	case strings.HasPrefix(text, "/"):
		return false, SkipCommand
	}

	if settings.Bound() {
		if *settings.BoundChannelID != ev.ChannelID {
			return false, SkipOtherTopic
		}
		return true, SkipNone
	}
	if requireMention && !ev.MentionsBot {
		return false, SkipNoMention
	}
	return true, SkipNone
}
