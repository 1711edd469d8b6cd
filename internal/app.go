package internal

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/rs/zerolog"
)

// MetadataSource fetches video details
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*VideoMetadata, error)
}

// App holds the application state and dependencies
type App struct {
	config        *Config
	llm           LLMClient
	captions      CaptionSource
	metadata      MetadataSource
	segmenter     Segmenter
	promptManager *PromptManager
	notes         *NoteStore
	ui            UIManager
	log           zerolog.Logger
	sleep         SleepFunc
	gate          FallbackGate
}

// NewApp initializes the application. Sources not supplied through options are
// built after the options run so they log through the final logger.
func NewApp(config *Config, options ...AppOption) *App {
	app := &App{
		config:        config,
		promptManager: NewPromptManager(config.ConfigDir, config.Prompt),
		notes:         NewNoteStore(config.NotesDir),
		ui:            NewUIManager(config.Quiet),
		log:           NewLogger(os.Stderr, config.Verbose, config.Quiet),
		sleep:         sleepContext,
	}
	if !config.AutoFallback {
		app.gate = askBeforeTranscribing
	}

	for _, option := range options {
		option(app)
	}

	if app.llm == nil {
		app.llm = NewOpenAIClient(config.APIKey, config.BaseURL, config.TranscriptionModel)
	}
	if app.captions == nil || app.metadata == nil || app.segmenter == nil {
		youtube := app.youtube()
		if app.captions == nil {
			app.captions = youtube
		}
		if app.metadata == nil {
			app.metadata = youtube
		}
		if app.segmenter == nil {
			app.segmenter = NewAudioSegmenter(youtube, &DefaultCommandRunner{},
				WithChunkDuration(config.AudioChunkDuration),
				WithBitrate(config.AudioBitrate),
				WithSegmenterLogger(app.log),
			)
		}
	}

	return app
}

func (app *App) youtube() *YouTube {
	return NewYouTube(app.config.TempDir,
		WithAudioQuality(app.config.AudioQuality),
		WithCaptionRetry(2, app.config.RetryDelay),
		WithYouTubeLogger(app.log),
	)
}

// AppOption customizes App creation
type AppOption func(*App)

// WithLLMClient sets the completion, streaming and transcription provider
func WithLLMClient(client LLMClient) AppOption {
	return func(a *App) {
		a.llm = client
	}
}

// WithCaptionSource sets the caption provider
func WithCaptionSource(captions CaptionSource) AppOption {
	return func(a *App) {
		a.captions = captions
	}
}

// WithMetadataSource sets the metadata provider
func WithMetadataSource(metadata MetadataSource) AppOption {
	return func(a *App) {
		a.metadata = metadata
	}
}

// WithSegmenter sets the audio download and segmentation backend
func WithSegmenter(segmenter Segmenter) AppOption {
	return func(a *App) {
		a.segmenter = segmenter
	}
}

// WithUI sets the UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets the application logger
func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) {
		a.log = logger
	}
}

// WithSleep replaces every retry and pacing sleep
func WithSleep(sleep SleepFunc) AppOption {
	return func(a *App) {
		a.sleep = sleep
	}
}

// WithAppFallbackGate overrides the configured fallback behaviour; nil always falls back
func WithAppFallbackGate(gate FallbackGate) AppOption {
	return func(a *App) {
		a.gate = gate
	}
}

func askBeforeTranscribing(_ context.Context, videoID string, captionErr error) bool {
	return AskUser(fmt.Sprintf("No captions for %s (%v). Transcribe the audio instead?", videoID, captionErr))
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	app.promptManager = pm
}

// Config returns the configuration the app was built with
func (app *App) Config() *Config {
	return app.config
}

// UI returns the app's UI manager
func (app *App) UI() UIManager {
	return app.ui
}

// Notes returns the saved notes store
func (app *App) Notes() *NoteStore {
	return app.notes
}

func (app *App) resolver() *TranscriptResolver {
	assembler := NewTranscriptionAssembler(app.llm,
		WithAssemblerRetryPolicy(app.config.RetryPolicy()),
		WithTranscriptionTimeout(app.config.TranscriptionTimeout),
		WithAssemblerSleep(app.sleep),
		WithAssemblerLogger(app.log),
	)
	return NewTranscriptResolver(app.captions, app.segmenter, assembler, app.config.TempDir,
		WithPacing(app.config.PacingDelay),
		WithResolverSleep(app.sleep),
		WithFallbackGate(app.gate),
		WithResolverLogger(app.log),
	)
}

func (app *App) synthesizer() *NoteSynthesizer {
	completer := NewRetryingCompleter(app.llm, app.config.Model,
		WithRetryPolicy(app.config.RetryPolicy()),
		WithCallTimeout(app.config.CompletionTimeout),
		WithSampling(app.config.Temperature, app.config.ChunkSize),
		WithCompleterSleep(app.sleep),
		WithCompleterLogger(app.log),
	)
	return NewNoteSynthesizer(completer, app.promptManager,
		WithChunking(app.config.ChunkSize, app.config.ChunkOverlap),
		WithSectionPacing(app.config.PacingDelay),
		WithSynthesizerSleep(app.sleep),
		WithSynthesizerLogger(app.log),
	)
}

// Metadata gets metadata from YouTube (cached or fresh)
func (app *App) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	if !IsValidYouTubeID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideoID, videoID)
	}

	if cached, err := LoadCachedMetadata(videoID, app.config.TranscriptsDir); err == nil {
		app.log.Debug().Str("video_id", videoID).Msg("using cached metadata")
		return cached, nil
	}

	metadata, err := app.metadata.Metadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if err := SaveMetadata(videoID, metadata, app.config.TranscriptsDir); err != nil {
		app.log.Warn().Err(err).Msg("failed to cache metadata")
	}
	return metadata, nil
}

// ResolveTranscript returns the cached transcript or resolves it from captions,
// falling back to audio transcription
func (app *App) ResolveTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	return app.resolveTranscript(ctx, videoID, func(r *TranscriptResolver) (*Transcript, error) {
		bar := app.ui.NewProgressBar(1, "Transcribing audio")
		return r.ResolveWithProgress(ctx, videoID, bar)
	})
}

// CaptionTranscript returns the cached transcript or the official captions, never transcribing audio
func (app *App) CaptionTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	return app.resolveTranscript(ctx, videoID, func(r *TranscriptResolver) (*Transcript, error) {
		return r.Official(ctx, videoID)
	})
}

// AudioTranscript transcribes the audio track even when captions exist
func (app *App) AudioTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	if !IsValidYouTubeID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideoID, videoID)
	}

	bar := app.ui.NewProgressBar(1, "Transcribing audio")
	transcript, err := app.resolver().FallbackWithProgress(ctx, videoID, bar)
	if err != nil {
		return nil, fmt.Errorf("generating transcript from audio: %w", err)
	}
	app.cacheTranscript(videoID, transcript)
	return transcript, nil
}

func (app *App) resolveTranscript(ctx context.Context, videoID string, resolve func(*TranscriptResolver) (*Transcript, error)) (*Transcript, error) {
	if !IsValidYouTubeID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideoID, videoID)
	}

	if cached, err := LoadTranscript(videoID, app.config.TranscriptsDir); err == nil {
		app.log.Debug().Str("video_id", videoID).Msg("using cached transcript")
		return cached, nil
	}

	spinner := app.ui.NewSpinner("Fetching transcript...")
	transcript, err := resolve(app.resolver())
	spinner.Finish()
	if err != nil {
		return nil, err
	}

	app.cacheTranscript(videoID, transcript)
	return transcript, nil
}

func (app *App) cacheTranscript(videoID string, transcript *Transcript) {
	if err := SaveTranscript(videoID, transcript, app.config.TranscriptsDir); err != nil {
		app.log.Warn().Err(err).Msg("failed to cache transcript")
	}
}

// SynthesizeNotes generates markdown notes from transcript text. metadata may be nil.
func (app *App) SynthesizeNotes(ctx context.Context, text string, metadata *VideoMetadata) (string, error) {
	bar := app.ui.NewProgressBar(1, "Generating notes")
	return app.synthesizer().SynthesizeWithProgress(ctx, text, metadata, bar)
}

// GenerateNotes resolves the transcript of videoID, writes notes for it and,
// when save is set, stores them. The returned record has an empty ID when unsaved.
func (app *App) GenerateNotes(ctx context.Context, videoID string, save bool) (*NoteRecord, error) {
	metadata, err := app.Metadata(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		app.log.Warn().Err(err).Msg("failed to extract video metadata")
		metadata = nil
	}

	transcript, err := app.ResolveTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	notes, err := app.SynthesizeNotes(ctx, transcript.FullText, metadata)
	if err != nil {
		return nil, err
	}

	title := ""
	if metadata != nil {
		title = metadata.Title
	}

	if !save {
		return &NoteRecord{VideoID: videoID, Title: title, Notes: notes, Segments: transcript.Segments}, nil
	}

	record, err := app.notes.Save(videoID, title, notes, transcript.Segments)
	if err != nil {
		return nil, err
	}
	app.log.Debug().Str("id", record.ID).Msg("notes saved")
	return record, nil
}

// StreamChat streams the assistant's reply to message
func (app *App) StreamChat(ctx context.Context, message string, image []byte) iter.Seq[string] {
	return app.chatStreamer().Stream(ctx, message, image)
}

// NewChatSession starts an empty chat session
func (app *App) NewChatSession() *ChatSession {
	return NewChatSession(app.chatStreamer())
}

func (app *App) chatStreamer() *ChatStreamer {
	return NewChatStreamer(app.llm, app.config.Model, app.config.VisionModel, app.log)
}
