package internal

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{61, "1:01"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.seconds))
	}
}

func TestFormatMetadata(t *testing.T) {
	got := FormatMetadata(&VideoMetadata{
		Title:       "Thermodynamics",
		Channel:     "Physics 101",
		Duration:    3725,
		Description: "Lecture 4",
		HasCaptions: true,
		Tags:        []string{"physics", "entropy"},
		Chapters:    []VideoChapter{{Title: "Intro", StartTime: 0, EndTime: 90}},
	})

	assert.Equal(t, "Title: Thermodynamics\n"+
		"Channel: Physics 101\n"+
		"Duration: 3725 seconds\n"+
		"Description: Lecture 4\n"+
		"Has Captions: true\n"+
		"Tags: physics, entropy\n"+
		"Chapter (0:00-1:30): Intro\n", got)
}

func TestMCPMetadataTool(t *testing.T) {
	app := newTestApp(t)
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleGetMetadata(context.Background(),
		callTool("get_youtube_metadata", map[string]any{"url": "https://youtu.be/" + testVideoID}))

	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Title: Thermodynamics")
}

func TestMCPTranscriptTool(t *testing.T) {
	app := newTestApp(t)
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleGetTranscript(context.Background(),
		callTool("get_youtube_transcript", map[string]any{"url": testVideoID}))

	require.NoError(t, err)
	assert.Equal(t, "Entropy measures disorder it always increases.", resultText(t, result))
}

func TestMCPTranscriptToolWithoutCaptions(t *testing.T) {
	app := newTestApp(t)
	app.captions.err = ErrNoCaptions
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleGetTranscript(context.Background(),
		callTool("get_youtube_transcript", map[string]any{"url": testVideoID}))

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Zero(t, app.segmenter.downloads)
}

func TestMCPTranscribeAudioTool(t *testing.T) {
	app := newTestApp(t)
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleTranscribeAudio(context.Background(),
		callTool("transcribe_youtube_audio", map[string]any{"url": testVideoID}))

	require.NoError(t, err)
	assert.Equal(t, "spoken words. spoken words.", resultText(t, result))
}

func TestMCPGenerateNotesTool(t *testing.T) {
	app := newTestApp(t)
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleGenerateNotes(context.Background(),
		callTool("generate_study_notes", map[string]any{"url": testVideoID, "save": false}))

	require.NoError(t, err)
	assert.Equal(t, "## Key Concepts", resultText(t, result))
	saved, err := app.Notes().List()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestMCPAskTool(t *testing.T) {
	app := newTestApp(t)
	app.llm.fakeStreamer.deltas = []string{"Entropy ", "increases."}
	server := NewMCPServer(app.App, "test", zerolog.Nop())

	result, err := server.handleAsk(context.Background(),
		callTool("ask_assistant", map[string]any{"message": "What is entropy?"}))

	require.NoError(t, err)
	assert.Equal(t, "Entropy increases.", resultText(t, result))
}

func TestMCPToolArgumentErrors(t *testing.T) {
	app := newTestApp(t)
	server := NewMCPServer(app.App, "test", zerolog.Nop())
	ctx := context.Background()

	result, err := server.handleGetMetadata(ctx, callTool("get_youtube_metadata", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = server.handleGenerateNotes(ctx, callTool("generate_study_notes", map[string]any{"url": "not a video"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = server.handleAsk(ctx, callTool("ask_assistant", map[string]any{"message": 42}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
