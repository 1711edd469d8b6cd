package internal

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transcriber turns one audio file into text
type Transcriber interface {
	CreateTranscription(ctx context.Context, audioFile string) (string, error)
}

// TranscriptionAssembler transcribes audio chunks and stitches the results into a Transcript
type TranscriptionAssembler struct {
	client    Transcriber
	policy    RetryPolicy
	sizeLimit int64
	timeout   time.Duration
	sleep     SleepFunc
	log       zerolog.Logger
}

// AssemblerOption customizes a TranscriptionAssembler
type AssemblerOption func(*TranscriptionAssembler)

// WithAssemblerRetryPolicy overrides DefaultRetryPolicy
func WithAssemblerRetryPolicy(policy RetryPolicy) AssemblerOption {
	return func(a *TranscriptionAssembler) {
		a.policy = policy.normalized()
	}
}

// WithAssemblerSleep replaces the blocking sleep between attempts
func WithAssemblerSleep(sleep SleepFunc) AssemblerOption {
	return func(a *TranscriptionAssembler) {
		a.sleep = sleep
	}
}

// WithTranscriptionTimeout bounds each transcription request
func WithTranscriptionTimeout(timeout time.Duration) AssemblerOption {
	return func(a *TranscriptionAssembler) {
		a.timeout = timeout
	}
}

// WithAssemblerSizeLimit overrides TranscriptionSizeLimit
func WithAssemblerSizeLimit(limit int64) AssemblerOption {
	return func(a *TranscriptionAssembler) {
		a.sizeLimit = limit
	}
}

// WithAssemblerLogger sets the logger
func WithAssemblerLogger(logger zerolog.Logger) AssemblerOption {
	return func(a *TranscriptionAssembler) {
		a.log = logger
	}
}

// NewTranscriptionAssembler creates an assembler backed by client
func NewTranscriptionAssembler(client Transcriber, options ...AssemblerOption) *TranscriptionAssembler {
	a := &TranscriptionAssembler{
		client:    client,
		policy:    DefaultRetryPolicy,
		sizeLimit: TranscriptionSizeLimit,
		sleep:     sleepContext,
		log:       zerolog.Nop(),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Transcribe sends one chunk to the transcription provider.
// Only rate-limited failures are retried, waiting BaseDelay*(attempt+1).
// The returned ChunkTranscription carries the error when the chunk failed.
func (a *TranscriptionAssembler) Transcribe(ctx context.Context, chunk AudioChunk) (ChunkTranscription, error) {
	result := ChunkTranscription{Index: chunk.Index, Start: chunk.StartSeconds()}

	info, err := os.Stat(chunk.Path)
	if err != nil {
		result.Err = fmt.Errorf("chunk file not found: %w", err)
		return result, result.Err
	}
	if a.sizeLimit > 0 && info.Size() > a.sizeLimit {
		result.Err = fmt.Errorf("%w: chunk %d is %.2f MB (limit %.2f MB)",
			ErrChunkTooLarge, chunk.Index+1, megabytes(info.Size()), megabytes(a.sizeLimit))
		return result, result.Err
	}

	var lastErr error
	for attempt := 0; attempt <= a.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result, err
		}

		text, err := a.call(ctx, chunk.Path)
		if err == nil {
			result.Text = text
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ClassRateLimited || attempt == a.policy.MaxRetries {
			break
		}

		wait := a.policy.linear(attempt)
		a.log.Warn().Int("chunk", chunk.Index+1).Dur("wait", wait).Msg("rate limit reached, waiting")
		if err := a.sleep(ctx, wait); err != nil {
			result.Err = err
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result, err
	}
	a.log.Error().Err(lastErr).Int("chunk", chunk.Index+1).Msg("error transcribing chunk")
	result.Err = fmt.Errorf("transcribing chunk %d: %w", chunk.Index+1, lastErr)
	return result, result.Err
}

func (a *TranscriptionAssembler) call(ctx context.Context, path string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.client.CreateTranscription(ctx, path)
}

// Merge drops failed and empty chunks, orders the rest by index and joins their
// sentence-terminated text with single spaces. Segments keep each chunk's start
// offset. ErrNoTranscript is returned when nothing is left.
func Merge(results []ChunkTranscription) (*Transcript, error) {
	valid := make([]ChunkTranscription, 0, len(results))
	for _, r := range results {
		if r.Err != nil || strings.TrimSpace(r.Text) == "" {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return nil, ErrNoTranscript
	}

	slices.SortStableFunc(valid, func(a, b ChunkTranscription) int {
		return a.Index - b.Index
	})

	parts := make([]string, 0, len(valid))
	segments := make([]TranscriptSegment, 0, len(valid))
	for _, r := range valid {
		text := strings.TrimSpace(r.Text)
		parts = append(parts, ensureTerminated(text))
		segments = append(segments, TranscriptSegment{Start: r.Start, Text: text})
	}

	return &Transcript{
		FullText: strings.Join(parts, " "),
		Segments: segments,
		Source:   SourceAudio,
	}, nil
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}
