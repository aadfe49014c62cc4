package personality

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		doc    string
		marker string
		want   string
	}{
		{
			name:   "body below marker",
			doc:    "# Pirate\n\nTalks like a pirate.\n\n## Prompt\n\nYou are a pirate.\nSay arr.\n",
			marker: "## Prompt",
			want:   "You are a pirate.\nSay arr.",
		},
		{
			name:   "windows line endings",
			doc:    "notes\r\n## Prompt\r\nBe brief.\r\n",
			marker: "## Prompt",
			want:   "Be brief.",
		},
		{
			name:   "marker with surrounding spaces",
			doc:    "notes\n  ## Prompt  \nBe kind.",
			marker: "## Prompt",
			want:   "Be kind.",
		},
		{
			name:   "no marker uses whole document",
			doc:    "\nJust be helpful.\n",
			marker: "## Prompt",
			want:   "Just be helpful.",
		},
		{
			name:   "marker mentioned inline is not a heading",
			doc:    "See the ## Prompt section.\n## Prompt\nReal body",
			marker: "## Prompt",
			want:   "Real body",
		},
		{
			name:   "empty body",
			doc:    "notes\n## Prompt\n",
			marker: "## Prompt",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extract(tt.doc, tt.marker))
		})
	}
}

func TestLoader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.md"), []byte("# Default\n## Prompt\nBe helpful."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pirate.md"), []byte("## Prompt\nArr."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts.md"), 0o700))

	loader := NewLoader(dir, "## Prompt")

	ids, err := loader.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "pirate"}, ids)

	text, err := loader.Text(context.Background(), "pirate")
	require.NoError(t, err)
	assert.Equal(t, "Arr.", text)

	assert.True(t, loader.Exists("default"))
	assert.False(t, loader.Exists("drafts"))
	assert.False(t, loader.Exists("../default"))

	_, err = loader.Text(context.Background(), "ninja")
	assert.ErrorIs(t, err, ErrUnknown)

	_, err = loader.Text(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidID)
}
