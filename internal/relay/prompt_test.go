package relay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/relaybot/internal/quota"
)

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()
	req := &QueuedRequest{
		RequestorID:     1,
		RequestorName:   "@alice",
		GuildID:         -100,
		GuildTitle:      "Cats",
		ChannelID:       3,
		TriggerText:     "draw my cat",
		Members:         []string{"@alice", "bob"},
		PersonalityText: "You are a pirate.",
		Memory:          "has a cat named Tom",
		Quota:           quota.Snapshot{UserCount: 0, UserLimit: 1, GuildCount: 4, GuildLimit: 10},
		RecentHistory: []HistoryMessage{
			{AuthorName: "bob", Text: "nice", Timestamp: time.Date(2026, 10, 17, 11, 59, 0, 0, time.UTC)},
		},
		ImageDescriptions: []ImageDescription{
			{AuthorName: "bob", Description: "a dog", OriginatingText: "my dog"},
			{AuthorName: "@alice", Description: "a grey cat", IsFromRequestor: true},
		},
	}

	prompt := BuildSystemPrompt(req, time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"language the user wrote in",
		"You are a pirate.",
		"Requestor: @alice (id 1)",
		"Group: Cats (id -100)",
		"Current time: 2026-10-17T12:00:00Z",
		"Known members: @alice, bob",
		"requestor 0/1, group 4/10",
		"has a cat named Tom",
		"[2026-10-17 11:59:00] bob: nice",
		"@alice: draw my cat",
		`"shouldGenerateImage"`,
	} {
		assert.Contains(t, prompt, want)
	}

	cat := strings.Index(prompt, "a grey cat")
	dog := strings.Index(prompt, "a dog")
	assert.Less(t, cat, dog, "requestor images come first")
	assert.Contains(t, prompt, `with the message "my dog"`)
}

func TestBuildSystemPromptWithoutMemory(t *testing.T) {
	t.Parallel()
	prompt := BuildSystemPrompt(&QueuedRequest{RequestorName: "bob", TriggerText: "hi"}, time.Now())
	assert.Contains(t, prompt, "(nothing yet)")
	assert.NotContains(t, prompt, "## Persona")
	assert.NotContains(t, prompt, "## Images")
}
