package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		arg    string
		wantID string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  dQw4w9WgXcQ ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://vimeo.com/12345", ""},
		{"transcribe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			url, id := ParseArg(tt.arg)
			assert.Equal(t, tt.wantID, id)
			if tt.wantID != "" {
				assert.Equal(t, "https://www.youtube.com/watch?v="+tt.wantID, url)
			}
		})
	}
}

func TestExtractVideoIDError(t *testing.T) {
	_, err := ExtractVideoID("https://example.com/watch")
	assert.ErrorIs(t, err, ErrInvalidVideoID)
}

func TestIsLikelyCommand(t *testing.T) {
	assert.True(t, IsLikelyCommand("transcrib"))
	assert.False(t, IsLikelyCommand("dQw4w9WgXcQ"))
	assert.False(t, IsLikelyCommand("youtu.be/x"))
	assert.False(t, IsLikelyCommand("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
}

func TestCleanupTempDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "run-1"), 0755))
	writeTempFile(filepath.Join(dir, "run-1"), "chunk_0.mp3", 8)
	writeTempFile(dir, "stray.mp3", 8)

	require.NoError(t, CleanupTempDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, CleanupTempDir(filepath.Join(dir, "missing")))
}

func TestEnsureDirsCreatesAll(t *testing.T) {
	root := t.TempDir()
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b", "c")

	require.NoError(t, EnsureDirs(a, b))

	assert.DirExists(t, a)
	assert.DirExists(t, b)
}
