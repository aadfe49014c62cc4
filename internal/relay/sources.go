package relay

import (
	"context"

	"github.com/edgard/relaybot/internal/database"
)

// StoreHistory reads the history window from the persisted message log.
type StoreHistory struct {
	Store database.Store
}

// RecentMessages implements HistorySource.
func (h StoreHistory) RecentMessages(ctx context.Context, guildID, channelID int64, limit int) ([]HistoryMessage, error) {
	msgs, err := h.Store.GetRecentMessages(ctx, guildID, channelID, limit)
	if err != nil {
		return nil, err
	}
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		hm := HistoryMessage{
			AuthorID:   m.UserID,
			AuthorName: m.AuthorName,
			Text:       m.Content,
			Timestamp:  m.Timestamp,
		}
		for _, a := range m.Attachments {
			hm.Attachments = append(hm.Attachments, Attachment{FileID: a.FileID, MIMEType: a.MIMEType})
		}
		history = append(history, hm)
	}
	return history, nil
}

// StoreMembers lists the authors recently seen in a guild.
type StoreMembers struct {
	Store database.Store
	Limit int
}

// Members implements MemberSource.
func (m StoreMembers) Members(ctx context.Context, guildID int64) ([]string, error) {
	return m.Store.ListChatAuthors(ctx, guildID, m.Limit)
}
