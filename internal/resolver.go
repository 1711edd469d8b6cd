package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Segmenter downloads a video's audio and cuts it into chunks inside dir
type Segmenter interface {
	Download(ctx context.Context, videoID, dir string) (string, error)
	Segment(ctx context.Context, audioFile, dir string) ([]AudioChunk, error)
}

// ChunkTranscriber transcribes a single audio chunk
type ChunkTranscriber interface {
	Transcribe(ctx context.Context, chunk AudioChunk) (ChunkTranscription, error)
}

// FallbackGate decides whether the audio fallback may run after captions failed
type FallbackGate func(ctx context.Context, videoID string, captionErr error) bool

// TranscriptResolver tries official captions first and falls back to
// transcribing the audio track chunk by chunk.
type TranscriptResolver struct {
	captions    CaptionSource
	segmenter   Segmenter
	transcriber ChunkTranscriber
	tempDir     string
	pacing      time.Duration
	sleep       SleepFunc
	gate        FallbackGate
	log         zerolog.Logger
}

// ResolverOption customizes a TranscriptResolver
type ResolverOption func(*TranscriptResolver)

// WithPacing sets the delay before every chunk transcription after the first
func WithPacing(d time.Duration) ResolverOption {
	return func(r *TranscriptResolver) {
		r.pacing = d
	}
}

// WithResolverSleep replaces the blocking pacing sleep
func WithResolverSleep(sleep SleepFunc) ResolverOption {
	return func(r *TranscriptResolver) {
		r.sleep = sleep
	}
}

// WithFallbackGate asks gate before starting the audio fallback
func WithFallbackGate(gate FallbackGate) ResolverOption {
	return func(r *TranscriptResolver) {
		r.gate = gate
	}
}

// WithResolverLogger sets the logger
func WithResolverLogger(logger zerolog.Logger) ResolverOption {
	return func(r *TranscriptResolver) {
		r.log = logger
	}
}

// NewTranscriptResolver creates a resolver. Each fallback run gets its own
// directory under tempDir.
func NewTranscriptResolver(captions CaptionSource, segmenter Segmenter, transcriber ChunkTranscriber, tempDir string, options ...ResolverOption) *TranscriptResolver {
	r := &TranscriptResolver{
		captions:    captions,
		segmenter:   segmenter,
		transcriber: transcriber,
		tempDir:     tempDir,
		pacing:      time.Second,
		sleep:       sleepContext,
		log:         zerolog.Nop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Resolve returns the transcript for videoID
func (r *TranscriptResolver) Resolve(ctx context.Context, videoID string) (*Transcript, error) {
	return r.ResolveWithProgress(ctx, videoID, nil)
}

// ResolveWithProgress is Resolve reporting fallback chunk progress to bar (may be nil)
func (r *TranscriptResolver) ResolveWithProgress(ctx context.Context, videoID string, bar ProgressBar) (*Transcript, error) {
	if !IsValidYouTubeID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideoID, videoID)
	}

	transcript, captionErr := r.Official(ctx, videoID)
	if captionErr == nil {
		return transcript, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.Info().Err(captionErr).Str("video_id", videoID).Msg("no usable captions, generating transcript from audio")

	if r.gate != nil && !r.gate(ctx, videoID, captionErr) {
		return nil, fmt.Errorf("%w: %w", ErrFallbackDeclined, captionErr)
	}

	transcript, err := r.FallbackWithProgress(ctx, videoID, bar)
	if err != nil {
		return nil, fmt.Errorf("generating transcript from audio: %w", err)
	}
	return transcript, nil
}

// Official fetches captions for videoID
func (r *TranscriptResolver) Official(ctx context.Context, videoID string) (*Transcript, error) {
	segments, err := r.captions.Captions(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetching captions: %w", err)
	}

	transcript, err := NewTranscript(segments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCaptions, err)
	}
	return transcript, nil
}

// Fallback downloads, segments and transcribes the audio of videoID
func (r *TranscriptResolver) Fallback(ctx context.Context, videoID string) (*Transcript, error) {
	return r.FallbackWithProgress(ctx, videoID, nil)
}

// FallbackWithProgress is Fallback reporting chunk progress to bar (may be nil).
// Every file it creates is removed before it returns.
func (r *TranscriptResolver) FallbackWithProgress(ctx context.Context, videoID string, bar ProgressBar) (*Transcript, error) {
	if err := EnsureDirs(r.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	runDir, err := os.MkdirTemp(r.tempDir, "run-*")
	if err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			r.log.Warn().Err(err).Str("dir", runDir).Msg("failed to remove temporary files")
		}
	}()

	audioFile, err := r.segmenter.Download(ctx, videoID, runDir)
	if err != nil {
		return nil, err
	}

	chunks, err := r.segmenter.Segment(ctx, audioFile, runDir)
	if err != nil {
		return nil, fmt.Errorf("splitting audio: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoTranscript
	}
	removeFile(audioFile, r.log)

	r.log.Info().Int("chunks", len(chunks)).Msg("transcribing audio")
	if bar != nil {
		bar.ChangeMax(len(chunks))
		defer bar.Finish()
	}

	results := make([]ChunkTranscription, 0, len(chunks))
	var failures []error
	for i, chunk := range chunks {
		if i > 0 && r.pacing > 0 {
			if err := r.sleep(ctx, r.pacing); err != nil {
				return nil, err
			}
		}
		if bar != nil {
			bar.Describe(fmt.Sprintf("Transcribing chunk %d/%d", i+1, len(chunks)))
		}

		result, err := r.transcriber.Transcribe(ctx, chunk)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			failures = append(failures, err)
		}
		results = append(results, result)
		removeFile(chunk.Path, r.log)

		if bar != nil {
			bar.Set(i + 1)
		}
	}

	transcript, err := Merge(results)
	if err != nil {
		return nil, errors.Join(append([]error{err}, failures...)...)
	}
	if len(failures) > 0 {
		r.log.Warn().Int("failed", len(failures)).Int("chunks", len(chunks)).Msg("transcript is missing chunks")
	}
	return transcript, nil
}

func removeFile(path string, log zerolog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", path).Msg("failed to remove file")
	}
}
