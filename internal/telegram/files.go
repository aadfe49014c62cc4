package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrNoFilePath is returned when Telegram has no downloadable path for a file.
var ErrNoFilePath = errors.New("empty file path returned from Telegram")

const fileURLFormat = "https://api.telegram.org/file/bot%s/%s"

// FileGetter is the part of *bot.Bot used to look up files.
type FileGetter interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
}

// FileResolver implements relay.AttachmentResolver with the getFile API. The
// URLs it returns embed the bot token and must not leave the process.
type FileResolver struct {
	api   FileGetter
	token string
}

// NewFileResolver creates a FileResolver.
func NewFileResolver(api FileGetter, token string) *FileResolver {
	return &FileResolver{api: api, token: token}
}

// ResolveURL returns the download URL of fileID.
func (r *FileResolver) ResolveURL(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("empty fileID provided")
	}
	file, err := r.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("failed to get file: %w", err)
	}
	if file == nil || file.FilePath == "" {
		return "", ErrNoFilePath
	}
	return fmt.Sprintf(fileURLFormat, r.token, file.FilePath), nil
}
