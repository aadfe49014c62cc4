// Package media downloads images for the vision backends.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes   = 10 * 1024 * 1024
	defaultTimeout    = 30 * time.Second
	fallbackMediaType = "application/octet-stream"
)

var (
	// ErrEmptyBody is returned when the server sends no data.
	ErrEmptyBody = errors.New("received empty file data")
	// ErrTooLarge is returned when the body exceeds the size cap.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// Fetcher downloads files over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. A nil client gets a default with a 30s timeout.
func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads url and returns its bytes and sniffed media type.
func (f *Fetcher) Fetch(ctx context.Context, url string) (data []byte, mimeType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyBody
	}

	mimeType = http.DetectContentType(data)
	if mimeType == "" {
		mimeType = fallbackMediaType
	}
	return data, mimeType, nil
}
