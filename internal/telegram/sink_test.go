package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

type fakeAPI struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
	photos   []*bot.SendPhotoParams
	actions  []*bot.SendChatActionParams
	files    map[string]string
	sendErr  error
}

func (f *fakeAPI) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.messages = append(f.messages, params)
	return &models.Message{ID: 1000 + len(f.messages), Date: 1760000000, Text: params.Text}, nil
}

func (f *fakeAPI) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.photos = append(f.photos, params)
	return &models.Message{ID: 2000, Photo: []models.PhotoSize{{FileID: "sent-photo"}}}, nil
}

func (f *fakeAPI) SendChatAction(_ context.Context, params *bot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, params)
	return true, nil
}

func (f *fakeAPI) GetFile(_ context.Context, params *bot.GetFileParams) (*models.File, error) {
	path, ok := f.files[params.FileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return &models.File{FileID: params.FileID, FilePath: path}, nil
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*database.Message
	err   error
}

func (f *fakeSaver) SaveMessage(_ context.Context, m *database.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, m)
	return f.err
}

func TestSinkSendText(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	saver := &fakeSaver{}
	sink := NewSink(api, saver, testBotInfo, 600, nil)

	target := relay.Target{GuildID: -100, ChannelID: 7, ReplyTo: 42}
	require.NoError(t, sink.SendText(context.Background(), target, "hello"))

	require.Len(t, api.messages, 1)
	sent := api.messages[0]
	assert.Equal(t, int64(-100), sent.ChatID)
	assert.Equal(t, 7, sent.MessageThreadID)
	assert.Equal(t, "hello", sent.Text)
	require.NotNil(t, sent.ReplyParameters)
	assert.Equal(t, 42, sent.ReplyParameters.MessageID)

	require.Len(t, saver.saved, 1)
	rec := saver.saved[0]
	assert.Equal(t, int64(-100), rec.ChatID)
	assert.Equal(t, int64(7), rec.ThreadID)
	assert.Equal(t, testBotInfo.ID, rec.UserID)
	assert.Equal(t, "@RelayBot", rec.AuthorName)
	assert.Equal(t, "hello", rec.Content)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), rec.Timestamp)
}

func TestSinkSendTextWithoutReply(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sink := NewSink(api, nil, testBotInfo, 600, nil)

	require.NoError(t, sink.SendText(context.Background(), relay.Target{GuildID: -1}, "notice"))
	require.Len(t, api.messages, 1)
	assert.Nil(t, api.messages[0].ReplyParameters)
}

func TestSinkSendImage(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	saver := &fakeSaver{}
	sink := NewSink(api, saver, testBotInfo, 600, nil)

	require.NoError(t, sink.SendImage(context.Background(), relay.Target{GuildID: -1, ReplyTo: 5}, "https://img/1.png"))
	require.Len(t, api.photos, 1)
	photo, ok := api.photos[0].Photo.(*models.InputFileString)
	require.True(t, ok)
	assert.Equal(t, "https://img/1.png", photo.Data)

	require.Len(t, saver.saved, 1)
	assert.Empty(t, saver.saved[0].Content)
	assert.Equal(t, database.Attachments{{FileID: "sent-photo", MIMEType: "image/jpeg"}}, saver.saved[0].Attachments)
}

func TestSinkSendErrors(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{sendErr: errors.New("forbidden")}
	saver := &fakeSaver{}
	sink := NewSink(api, saver, testBotInfo, 600, nil)

	err := sink.SendText(context.Background(), relay.Target{GuildID: -1}, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.sendErr)
	assert.Error(t, sink.SendImage(context.Background(), relay.Target{GuildID: -1}, "u"))
	assert.Empty(t, saver.saved)
}

func TestSinkSaveFailureDoesNotFailDelivery(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sink := NewSink(api, &fakeSaver{err: errors.New("disk full")}, testBotInfo, 600, nil)

	assert.NoError(t, sink.SendText(context.Background(), relay.Target{GuildID: -1}, "x"))
}

func TestSinkSendTyping(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sink := NewSink(api, nil, testBotInfo, 1, nil)

	require.NoError(t, sink.SendTyping(context.Background(), relay.Target{GuildID: -3, ChannelID: 4}))
	require.Len(t, api.actions, 1)
	assert.Equal(t, models.ChatActionTyping, api.actions[0].Action)
	assert.Equal(t, 4, api.actions[0].MessageThreadID)
}

func TestSinkPacingHonorsContext(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sink := NewSink(api, nil, testBotInfo, 1, nil)

	require.NoError(t, sink.SendText(context.Background(), relay.Target{GuildID: -1}, "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := sink.SendText(ctx, relay.Target{GuildID: -1}, "second")
	require.Error(t, err)
	assert.Len(t, api.messages, 1)

	// Other chats have their own budget.
	require.NoError(t, sink.SendText(context.Background(), relay.Target{GuildID: -2}, "other"))
}

func TestSinkPacingSharedAcrossConcurrentSends(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sink := NewSink(api, nil, testBotInfo, 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.SendText(ctx, relay.Target{GuildID: -5}, "burst")
		}()
	}
	wg.Wait()

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.messages, 1, "one chat gets one limiter and one burst")
	assert.Same(t, sink.limiterFor(-5), sink.limiterFor(-5))
}

func TestFileResolver(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{files: map[string]string{"abc": "photos/file_1.jpg", "blank": ""}}
	resolver := NewFileResolver(api, "123:TOKEN")

	url, err := resolver.ResolveURL(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org/file/bot123:TOKEN/photos/file_1.jpg", url)

	_, err = resolver.ResolveURL(context.Background(), "missing")
	assert.Error(t, err)

	_, err = resolver.ResolveURL(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrNoFilePath)

	_, err = resolver.ResolveURL(context.Background(), "")
	assert.Error(t, err)
}
