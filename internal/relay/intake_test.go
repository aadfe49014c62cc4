package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	t.Parallel()
	topic := int64(5)
	bound := GuildSettings{BoundChannelID: &topic}
	base := Event{AuthorID: 1, GuildID: -1, IsGroup: true, Text: "hello"}

	with := func(mutate func(*Event)) Event {
		ev := base
		mutate(&ev)
		return ev
	}

	tests := []struct {
		name           string
		ev             Event
		settings       GuildSettings
		requireMention bool
		want           bool
		reason         string
	}{
		{name: "plain group message", ev: base, want: true},
		{name: "empty text", ev: with(func(e *Event) { e.Text = "  " }), reason: SkipEmpty},
		{name: "bot author", ev: with(func(e *Event) { e.IsBot = true }), reason: SkipBot},
		{name: "private chat", ev: with(func(e *Event) { e.IsGroup = false }), reason: SkipNotGroup},
		{name: "command", ev: with(func(e *Event) { e.Text = "/help" }), reason: SkipCommand},
		{name: "bound topic matches", ev: with(func(e *Event) { e.ChannelID = 5 }), settings: bound, want: true},
		{name: "bound topic differs", ev: with(func(e *Event) { e.ChannelID = 6 }), settings: bound, reason: SkipOtherTopic},
		{name: "mention required but missing", ev: base, requireMention: true, reason: SkipNoMention},
		{name: "mention required and present", ev: with(func(e *Event) { e.MentionsBot = true }), requireMention: true, want: true},
		{name: "bound topic ignores mention rule", ev: with(func(e *Event) { e.ChannelID = 5 }), settings: bound, requireMention: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := Eligible(tt.ev, tt.settings, tt.requireMention)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
