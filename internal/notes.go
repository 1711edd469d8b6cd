package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultChunkSize is the largest transcript handled by a single completion
	DefaultChunkSize = 6000
	// DefaultChunkOverlap is the window searched backwards for a natural break
	DefaultChunkOverlap = 200

	EducationalSystemPrompt = "You are an expert educational content creator, skilled at breaking down complex topics into clear, organized notes for students."
)

// TextCompleter completes one prompt under a system prompt
type TextCompleter interface {
	Complete(ctx context.Context, content, systemPrompt string) (string, error)
}

// NoteSynthesizer turns a transcript into markdown study notes
type NoteSynthesizer struct {
	completer TextCompleter
	prompts   *PromptManager
	chunkSize int
	overlap   int
	pacing    time.Duration
	sleep     SleepFunc
	log       zerolog.Logger
}

// SynthesizerOption customizes a NoteSynthesizer
type SynthesizerOption func(*NoteSynthesizer)

// WithChunking sets the section size and break search window
func WithChunking(size, overlap int) SynthesizerOption {
	return func(n *NoteSynthesizer) {
		n.chunkSize = size
		n.overlap = overlap
	}
}

// WithSectionPacing sets the delay before every section call after the first
func WithSectionPacing(d time.Duration) SynthesizerOption {
	return func(n *NoteSynthesizer) {
		n.pacing = d
	}
}

// WithSynthesizerSleep replaces the blocking pacing sleep
func WithSynthesizerSleep(sleep SleepFunc) SynthesizerOption {
	return func(n *NoteSynthesizer) {
		n.sleep = sleep
	}
}

// WithSynthesizerLogger sets the logger
func WithSynthesizerLogger(logger zerolog.Logger) SynthesizerOption {
	return func(n *NoteSynthesizer) {
		n.log = logger
	}
}

// NewNoteSynthesizer creates a synthesizer
func NewNoteSynthesizer(completer TextCompleter, prompts *PromptManager, options ...SynthesizerOption) *NoteSynthesizer {
	n := &NoteSynthesizer{
		completer: completer,
		prompts:   prompts,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		pacing:    time.Second,
		sleep:     sleepContext,
		log:       zerolog.Nop(),
	}
	for _, option := range options {
		option(n)
	}
	return n
}

// Synthesize generates notes for transcript text
func (n *NoteSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	return n.SynthesizeWithProgress(ctx, text, nil, nil)
}

// SynthesizeWithProgress generates notes, adding video metadata to the prompt
// and reporting section progress to bar. Both may be nil.
//
// Transcripts up to chunkSize take a single completion. Longer ones are split
// into sections; sections whose completion fails are skipped and the rest are
// numbered by their position among the successful ones, so "Section 2 Notes"
// may come from the third transcript chunk.
func (n *NoteSynthesizer) SynthesizeWithProgress(ctx context.Context, text string, metadata *VideoMetadata, bar ProgressBar) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}

	if len(text) <= n.chunkSize {
		prompt, err := n.prompts.CreatePrompt(text, metadata, 0, 0)
		if err != nil {
			return "", err
		}
		notes, err := n.completer.Complete(ctx, prompt, EducationalSystemPrompt)
		if err != nil {
			return "", fmt.Errorf("generating notes: %w", err)
		}
		return notes, nil
	}

	n.log.Info().Msg("longer lecture, processing in sections")
	sections, err := n.Sections(ctx, text, metadata, bar)
	if err != nil {
		return "", err
	}
	return JoinSections(sections), nil
}

// Sections runs one completion per transcript chunk and returns the successful ones
func (n *NoteSynthesizer) Sections(ctx context.Context, text string, metadata *VideoMetadata, bar ProgressBar) ([]SectionNote, error) {
	chunks := SplitText(text, n.chunkSize, n.overlap)
	total := len(chunks)

	if bar != nil {
		bar.ChangeMax(total)
		defer bar.Finish()
	}

	notes := make([]SectionNote, 0, total)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && n.pacing > 0 {
			if err := n.sleep(ctx, n.pacing); err != nil {
				return nil, err
			}
		}

		section := i + 1
		n.log.Info().Int("section", section).Int("total", total).Msg("processing section")
		if bar != nil {
			bar.Describe(fmt.Sprintf("Section %d/%d", section, total))
		}

		prompt, err := n.prompts.CreatePrompt(chunk, metadata, section, total)
		if err != nil {
			return nil, err
		}

		out, err := n.completer.Complete(ctx, prompt, EducationalSystemPrompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		switch {
		case err != nil:
			n.log.Warn().Err(err).Int("section", section).Msg("section failed, skipping")
		case strings.TrimSpace(out) == "":
			n.log.Warn().Int("section", section).Msg("section returned no notes, skipping")
		default:
			notes = append(notes, SectionNote{Index: len(notes) + 1, Chunk: section, Text: out})
		}

		if bar != nil {
			bar.Set(section)
		}
	}

	if len(notes) == 0 {
		return nil, ErrNoSections
	}
	if len(notes) < total {
		n.log.Warn().Int("generated", len(notes)).Int("total", total).Msg("some sections were skipped")
	}
	return notes, nil
}

// JoinSections renders sections as "Section k Notes:" blocks separated by blank lines
func JoinSections(sections []SectionNote) string {
	blocks := make([]string, len(sections))
	for i, s := range sections {
		blocks[i] = fmt.Sprintf("Section %d Notes:\n%s", s.Index, s.Text)
	}
	return strings.Join(blocks, "\n\n")
}
