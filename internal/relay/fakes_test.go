package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/edgard/relaybot/internal/quota"
)

type fakeHistory struct {
	msgs []HistoryMessage
	err  error
}

func (f fakeHistory) RecentMessages(context.Context, int64, int64, int) ([]HistoryMessage, error) {
	return f.msgs, f.err
}

type fakeMembers struct {
	names []string
	err   error
}

func (f fakeMembers) Members(context.Context, int64) ([]string, error) {
	return f.names, f.err
}

// fakeResolver maps a file id to "https://files/<id>", failing for ids in fail.
type fakeResolver struct {
	fail map[string]bool
}

func (f fakeResolver) ResolveURL(_ context.Context, fileID string) (string, error) {
	if f.fail[fileID] {
		return "", errors.New("resolve failed")
	}
	return "https://files/" + fileID, nil
}

type fakeDescriber struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeDescriber) Describe(_ context.Context, imageURL, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, imageURL)
	f.mu.Unlock()
	if f.fail[imageURL] {
		return "", errors.New("vision failed")
	}
	return "desc of " + imageURL + " / " + prompt, nil
}

type fakeGuilds struct {
	settings GuildSettings
}

func (f fakeGuilds) Settings(context.Context, int64) GuildSettings {
	return f.settings
}

type fakePersonalities struct {
	texts map[string]string
}

func (f fakePersonalities) Text(_ context.Context, id string) (string, error) {
	text, ok := f.texts[id]
	if !ok {
		return "", errors.New("unknown personality")
	}
	return text, nil
}

type fakeMemory struct {
	mu       sync.Mutex
	notes    map[int64]string
	appended []string
	err      error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{notes: map[int64]string{}}
}

func (f *fakeMemory) Get(_ context.Context, userID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[userID]
}

func (f *fakeMemory) Append(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, text)
	return f.err
}

// fakeLedger is an in-memory ledger with fixed limits.
type fakeLedger struct {
	mu         sync.Mutex
	user       map[int64]int
	guild      map[int64]int
	userLimit  int
	guildLimit int
	increments int
	decrements int
}

func newFakeLedger(userLimit, guildLimit int) *fakeLedger {
	return &fakeLedger{user: map[int64]int{}, guild: map[int64]int{}, userLimit: userLimit, guildLimit: guildLimit}
}

func (f *fakeLedger) Check(_ context.Context, userID, guildID int64) quota.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user[userID] >= f.userLimit {
		return quota.Verdict{Reason: "You already made your image today."}
	}
	if f.guild[guildID] >= f.guildLimit {
		return quota.Verdict{Reason: "This group is out of images today."}
	}
	return quota.Verdict{Allowed: true}
}

func (f *fakeLedger) Increment(_ context.Context, userID, guildID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	f.user[userID]++
	f.guild[guildID]++
}

func (f *fakeLedger) Decrement(_ context.Context, userID, guildID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	f.user[userID] = max(f.user[userID]-1, 0)
	f.guild[guildID] = max(f.guild[guildID]-1, 0)
}

func (f *fakeLedger) Snapshot(_ context.Context, userID, guildID int64) quota.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return quota.Snapshot{UserCount: f.user[userID], UserLimit: f.userLimit, GuildCount: f.guild[guildID], GuildLimit: f.guildLimit}
}

type fakeCompleter struct {
	raw          string
	err          error
	systemPrompt string
	userPrompt   string
	calls        int
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.systemPrompt = systemPrompt
	f.userPrompt = userPrompt
	return f.raw, f.err
}

type fakeImages struct {
	url    string
	err    error
	calls  int
	prompt string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.url, f.err
}

type sentMessage struct {
	target Target
	text   string
	image  string
}

type fakeSink struct {
	mu      sync.Mutex
	sent    []sentMessage
	typing  int
	sendErr error
}

func (f *fakeSink) SendTyping(context.Context, Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return errors.New("typing not supported")
}

func (f *fakeSink) SendText(_ context.Context, target Target, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{target: target, text: text})
	return f.sendErr
}

func (f *fakeSink) SendImage(_ context.Context, target Target, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{target: target, image: imageURL})
	return f.sendErr
}

func (f *fakeSink) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

var testMessages = Messages{
	GeneralError: "Something went wrong.",
	ImageError:   "I could not draw that.",
	EmptyReply:   "...",
	Refusal:      "I won't say that.",
	Cooldown:     "Slow down, wait %d s.",
	Queued:       "Busy, %d ahead of you.",
}
