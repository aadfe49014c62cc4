// Package personality loads persona prompts from markdown files.
//
// A persona lives in <dir>/<id>.md. Everything above the marker line (by default
// "## Prompt") is notes for humans; the prompt is the text below it.
package personality

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrUnknown is returned for an id with no file.
	ErrUnknown = errors.New("unknown personality")
	// ErrInvalidID is returned for ids that are not plain file names.
	ErrInvalidID = errors.New("invalid personality id")
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const fileExt = ".md"

// Loader reads personality files from one directory.
type Loader struct {
	dir    string
	marker string
}

// NewLoader creates a Loader for dir using marker as the section heading.
func NewLoader(dir, marker string) *Loader {
	return &Loader{dir: dir, marker: strings.TrimSpace(marker)}
}

// List returns the available ids, sorted.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list personalities in %s: %w", l.dir, err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != fileExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether id has a file.
func (l *Loader) Exists(id string) bool {
	if !validID.MatchString(id) {
		return false
	}
	info, err := os.Stat(l.path(id))
	return err == nil && !info.IsDir()
}

// Text returns the prompt body of id.
func (l *Loader) Text(_ context.Context, id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	raw, err := os.ReadFile(l.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrUnknown, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read personality %s: %w", id, err)
	}
	return Extract(string(raw), l.marker), nil
}

func (l *Loader) path(id string) string {
	return filepath.Join(l.dir, id+fileExt)
}

// Extract returns the text below the first line equal to marker, trimmed.
// Without a marker line the whole document is the prompt.
func Extract(doc, marker string) string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	if marker == "" {
		return strings.TrimSpace(doc)
	}
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == marker {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return strings.TrimSpace(doc)
}
