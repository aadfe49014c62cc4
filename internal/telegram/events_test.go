package telegram

import (
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

var testBotInfo = config.BotInfo{ID: 99, Username: "RelayBot", FirstName: "Relay"}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		user *models.User
		want string
	}{
		{"username", &models.User{Username: "alice", FirstName: "Alice"}, "@alice"},
		{"full name", &models.User{FirstName: "Bob", LastName: "Smith"}, "Bob Smith"},
		{"first name only", &models.User{FirstName: "Carol"}, "Carol"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DisplayName(tt.user))
		})
	}
}

func TestMentionsBot(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		msg  *models.Message
		want bool
	}{
		{"at mention", &models.Message{Text: "hey @relaybot what's up"}, true},
		{"bare username with punctuation", &models.Message{Text: "RelayBot, draw a cat!"}, true},
		{"mention in caption", &models.Message{Caption: "@RelayBot look at this"}, true},
		{"reply to bot", &models.Message{Text: "thanks", ReplyToMessage: &models.Message{From: &models.User{ID: 99}}}, true},
		{"reply to someone else", &models.Message{Text: "thanks", ReplyToMessage: &models.Message{From: &models.User{ID: 5}}}, false},
		{"substring only", &models.Message{Text: "@relaybotfan hi"}, false},
		{"no mention", &models.Message{Text: "hello everyone"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MentionsBot(tt.msg, testBotInfo))
		})
	}
}

func TestAttachments(t *testing.T) {
	t.Parallel()
	msg := &models.Message{
		Photo: []models.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
		Document: &models.Document{FileID: "doc", MimeType: "image/png"},
	}
	assert.Equal(t, []relay.Attachment{
		{FileID: "large", MIMEType: "image/jpeg"},
		{FileID: "doc", MIMEType: "image/png"},
	}, Attachments(msg))
	assert.Empty(t, Attachments(&models.Message{Text: "plain"}))
}

func TestEventFromMessage(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	msg := &models.Message{
		ID:              42,
		MessageThreadID: 7,
		IsTopicMessage:  true,
		From:            &models.User{ID: 1, Username: "alice"},
		Chat:            models.Chat{ID: -100, Type: models.ChatTypeSupergroup, Title: "Friends"},
		Date:            int(date.Unix()),
		Text:            "@relaybot hi",
	}

	ev, ok := EventFromMessage(msg, testBotInfo)
	require.True(t, ok)
	assert.Equal(t, relay.Event{
		AuthorID:    1,
		AuthorName:  "@alice",
		GuildID:     -100,
		GuildTitle:  "Friends",
		IsGroup:     true,
		ChannelID:   7,
		MessageID:   42,
		Text:        "@relaybot hi",
		MentionsBot: true,
		Timestamp:   date,
	}, ev)

	t.Run("reply thread outside forum is general topic", func(t *testing.T) {
		t.Parallel()
		ev, ok := EventFromMessage(&models.Message{
			MessageThreadID: 12,
			From:            &models.User{ID: 1},
			Chat:            models.Chat{ID: -1, Type: models.ChatTypeGroup},
		}, testBotInfo)
		require.True(t, ok)
		assert.Zero(t, ev.ChannelID)
	})

	t.Run("no sender", func(t *testing.T) {
		t.Parallel()
		_, ok := EventFromMessage(&models.Message{Chat: models.Chat{ID: -1}}, testBotInfo)
		assert.False(t, ok)
	})

	t.Run("private chat", func(t *testing.T) {
		t.Parallel()
		ev, ok := EventFromMessage(&models.Message{
			From: &models.User{ID: 1},
			Chat: models.Chat{ID: 1, Type: models.ChatTypePrivate},
		}, testBotInfo)
		require.True(t, ok)
		assert.False(t, ev.IsGroup)
	})
}

func TestHistoryRecord(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rec := HistoryRecord(relay.Event{
		AuthorID:    3,
		AuthorName:  "@dave",
		GuildID:     -5,
		ChannelID:   2,
		Text:        "look",
		Attachments: []relay.Attachment{{FileID: "f", MIMEType: "image/jpeg"}},
		Timestamp:   ts,
	})
	assert.Equal(t, &database.Message{
		ChatID:      -5,
		ThreadID:    2,
		UserID:      3,
		AuthorName:  "@dave",
		Content:     "look",
		Attachments: database.Attachments{{FileID: "f", MIMEType: "image/jpeg"}},
		Timestamp:   ts,
	}, rec)
}
