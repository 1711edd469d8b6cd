package internal

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetadata struct {
	metadata *VideoMetadata
	err      error
	calls    int
}

func (f *fakeMetadata) Metadata(_ context.Context, _ string) (*VideoMetadata, error) {
	f.calls++
	return f.metadata, f.err
}

type testApp struct {
	*App
	config    *Config
	llm       *fakeLLM
	captions  *fakeCaptions
	metadata  *fakeMetadata
	segmenter *fakeSegmenter
	sleeper   *recordingSleep
}

func newTestApp(t *testing.T, options ...AppOption) *testApp {
	t.Helper()
	root := t.TempDir()
	config := &Config{
		Model:          "test-model",
		VisionModel:    "test-vision",
		Temperature:    0.7,
		ChunkSize:      DefaultChunkSize,
		ChunkOverlap:   DefaultChunkOverlap,
		MaxRetries:     2,
		RetryDelay:     time.Second,
		PacingDelay:    time.Second,
		AutoFallback:   true,
		Quiet:          true,
		ConfigDir:      filepath.Join(root, "config"),
		TranscriptsDir: filepath.Join(root, "transcripts"),
		NotesDir:       filepath.Join(root, "notes"),
		TempDir:        filepath.Join(root, "temp_chunks"),
	}

	ta := &testApp{
		config: config,
		llm:    &fakeLLM{},
		captions: &fakeCaptions{segments: []TranscriptSegment{
			{Text: "Entropy measures disorder", Start: 0},
			{Text: "it always increases", Start: 4},
		}},
		metadata:  &fakeMetadata{metadata: &VideoMetadata{ID: testVideoID, Title: "Thermodynamics", HasCaptions: true}},
		segmenter: &fakeSegmenter{count: 2},
		sleeper:   &recordingSleep{},
	}
	ta.llm.fakeCompleter.reply = "## Key Concepts"
	ta.llm.fakeTranscriber.text = "spoken words"

	options = append([]AppOption{
		WithLLMClient(ta.llm),
		WithCaptionSource(ta.captions),
		WithMetadataSource(ta.metadata),
		WithSegmenter(ta.segmenter),
		WithUI(NewUIManager(true)),
		WithSleep(ta.sleeper.Sleep),
	}, options...)
	ta.App = NewApp(config, options...)
	return ta
}

func TestGenerateNotesSavesRecord(t *testing.T) {
	app := newTestApp(t)

	record, err := app.GenerateNotes(context.Background(), testVideoID, true)

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, testVideoID, record.VideoID)
	assert.Equal(t, "Thermodynamics", record.Title)
	assert.Equal(t, "## Key Concepts", record.Notes)
	assert.Len(t, record.Segments, 2)

	loaded, err := app.Notes().Load(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Notes, loaded.Notes)

	require.Len(t, app.llm.fakeCompleter.requests, 1)
	assert.Equal(t, "test-model", app.llm.fakeCompleter.requests[0].Model)
	assert.Contains(t, app.llm.fakeCompleter.requests[0].Messages[1].Text, `"Thermodynamics"`)
	assert.Contains(t, app.llm.fakeCompleter.requests[0].Messages[1].Text, "Entropy measures disorder it always increases.")
}

func TestGenerateNotesWithoutSaving(t *testing.T) {
	app := newTestApp(t)

	record, err := app.GenerateNotes(context.Background(), testVideoID, false)

	require.NoError(t, err)
	assert.Empty(t, record.ID)
	assert.Equal(t, "## Key Concepts", record.Notes)

	saved, err := app.Notes().List()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestGenerateNotesSurvivesMetadataFailure(t *testing.T) {
	app := newTestApp(t)
	app.metadata.err = errors.New("yt-dlp exploded")

	record, err := app.GenerateNotes(context.Background(), testVideoID, false)

	require.NoError(t, err)
	assert.Empty(t, record.Title)
}

func TestTranscriptsAndMetadataAreCached(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	first, err := app.ResolveTranscript(ctx, testVideoID)
	require.NoError(t, err)
	second, err := app.CaptionTranscript(ctx, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, first.FullText, second.FullText)
	assert.Equal(t, 1, app.captions.calls)

	_, err = app.Metadata(ctx, testVideoID)
	require.NoError(t, err)
	_, err = app.Metadata(ctx, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, 1, app.metadata.calls)
}

func TestResolveTranscriptFallsBackToAudio(t *testing.T) {
	app := newTestApp(t)
	app.captions.err = ErrNoCaptions

	transcript, err := app.ResolveTranscript(context.Background(), testVideoID)

	require.NoError(t, err)
	assert.Equal(t, "spoken words. spoken words.", transcript.FullText)
	assert.Equal(t, 1, app.segmenter.downloads)
	assert.Len(t, app.llm.fakeTranscriber.files, 2)
}

func TestResolveTranscriptDeclinedFallback(t *testing.T) {
	var asked string
	app := newTestApp(t, WithAppFallbackGate(func(_ context.Context, videoID string, _ error) bool {
		asked = videoID
		return false
	}))
	app.captions.err = ErrNoCaptions

	_, err := app.ResolveTranscript(context.Background(), testVideoID)

	assert.ErrorIs(t, err, ErrFallbackDeclined)
	assert.ErrorIs(t, err, ErrNoCaptions)
	assert.Equal(t, testVideoID, asked)
	assert.Zero(t, app.segmenter.downloads)
}

func TestAudioTranscriptIgnoresCaptions(t *testing.T) {
	app := newTestApp(t)

	transcript, err := app.AudioTranscript(context.Background(), testVideoID)

	require.NoError(t, err)
	assert.Equal(t, "spoken words. spoken words.", transcript.FullText)
	assert.Zero(t, app.captions.calls)
}

func TestAppRejectsInvalidVideoID(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.ResolveTranscript(ctx, "short")
	assert.ErrorIs(t, err, ErrInvalidVideoID)
	_, err = app.AudioTranscript(ctx, "short")
	assert.ErrorIs(t, err, ErrInvalidVideoID)
	_, err = app.Metadata(ctx, "short")
	assert.ErrorIs(t, err, ErrInvalidVideoID)
}

func TestNewAppSourcesUseConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp(&Config{TempDir: t.TempDir(), Quiet: true, AudioBitrate: 64},
		WithLogger(zerolog.New(&buf)),
		WithLLMClient(&fakeLLM{}),
	)

	youtube, ok := app.captions.(*YouTube)
	require.True(t, ok)
	assert.Same(t, youtube, app.metadata)
	segmenter, ok := app.segmenter.(*AudioSegmenter)
	require.True(t, ok)

	youtube.log.Warn().Msg("caption download retried")
	segmenter.log.Warn().Msg("chunk re-encoded")

	assert.Contains(t, buf.String(), "caption download retried")
	assert.Contains(t, buf.String(), "chunk re-encoded")
}
