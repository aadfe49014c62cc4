package telegram

import (
	"strings"
	"time"
	"unicode"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

// Photos are always re-encoded to JPEG by Telegram.
const photoMIMEType = "image/jpeg"

// MessageText returns the text of msg, falling back to the caption.
func MessageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// DisplayName returns @username when the user has one, otherwise the full name.
func DisplayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsGroup reports whether the chat is a group or supergroup.
func IsGroup(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}

// Attachments lists the files of msg. Only the largest size of a photo is kept.
func Attachments(msg *models.Message) []relay.Attachment {
	var out []relay.Attachment
	if n := len(msg.Photo); n > 0 {
		out = append(out, relay.Attachment{FileID: msg.Photo[n-1].FileID, MIMEType: photoMIMEType})
	}
	if msg.Document != nil && msg.Document.FileID != "" {
		out = append(out, relay.Attachment{FileID: msg.Document.FileID, MIMEType: msg.Document.MimeType})
	}
	return out
}

// ThreadID returns the forum topic of msg, 0 for the general topic.
func ThreadID(msg *models.Message) int64 {
	if !msg.IsTopicMessage {
		return 0
	}
	return int64(msg.MessageThreadID)
}

// MentionsBot reports whether msg addresses the bot: an @mention, the bare
// username, or a reply to one of the bot's messages.
func MentionsBot(msg *models.Message, botInfo config.BotInfo) bool {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == botInfo.ID {
		return true
	}
	if botInfo.Username == "" {
		return false
	}
	username := strings.ToLower(botInfo.Username)
	for _, w := range strings.Fields(strings.ToLower(MessageText(msg))) {
		if strings.TrimLeft(strings.TrimFunc(w, unicode.IsPunct), "@") == username {
			return true
		}
	}
	return false
}

// EventFromMessage maps a Telegram message to a relay event. It returns false
// for messages without a sender.
func EventFromMessage(msg *models.Message, botInfo config.BotInfo) (relay.Event, bool) {
	if msg == nil || msg.From == nil {
		return relay.Event{}, false
	}
	return relay.Event{
		AuthorID:    msg.From.ID,
		AuthorName:  DisplayName(msg.From),
		IsBot:       msg.From.IsBot,
		GuildID:     msg.Chat.ID,
		GuildTitle:  msg.Chat.Title,
		IsGroup:     IsGroup(msg.Chat),
		ChannelID:   ThreadID(msg),
		MessageID:   msg.ID,
		Text:        MessageText(msg),
		Attachments: Attachments(msg),
		MentionsBot: MentionsBot(msg, botInfo),
		Timestamp:   time.Unix(int64(msg.Date), 0).UTC(),
	}, true
}

// HistoryRecord converts an event to its stored form.
func HistoryRecord(ev relay.Event) *database.Message {
	rec := &database.Message{
		ChatID:     ev.GuildID,
		ThreadID:   ev.ChannelID,
		UserID:     ev.AuthorID,
		AuthorName: ev.AuthorName,
		Content:    ev.Text,
		Timestamp:  ev.Timestamp,
	}
	for _, a := range ev.Attachments {
		rec.Attachments = append(rec.Attachments, database.Attachment{FileID: a.FileID, MIMEType: a.MIMEType})
	}
	return rec
}
