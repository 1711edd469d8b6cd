package internal

import (
	"fmt"
	"strings"
	"time"
)

// TranscriptSource records which path produced a transcript
type TranscriptSource string

const (
	SourceCaptions TranscriptSource = "captions"
	SourceAudio    TranscriptSource = "audio"
)

// TranscriptSegment is a timestamped span of transcript text
type TranscriptSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Transcript is the resolved transcript of one video.
// FullText is non-empty exactly when Segments is non-empty.
type Transcript struct {
	FullText string              `json:"full_text"`
	Segments []TranscriptSegment `json:"segments"`
	Source   TranscriptSource    `json:"source"`
}

// NewTranscript builds a caption transcript from provider segments.
// Blank segments are dropped and the joined text ends with terminal punctuation.
func NewTranscript(segments []TranscriptSegment) (*Transcript, error) {
	kept := make([]TranscriptSegment, 0, len(segments))
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		kept = append(kept, TranscriptSegment{Start: seg.Start, Text: text})
		parts = append(parts, text)
	}

	if len(kept) == 0 {
		return nil, ErrNoTranscript
	}

	return &Transcript{
		FullText: ensureTerminated(strings.Join(parts, " ")),
		Segments: kept,
		Source:   SourceCaptions,
	}, nil
}

// ensureTerminated appends a period when text does not already end a sentence
func ensureTerminated(text string) string {
	if text == "" || strings.ContainsAny(text[len(text)-1:], ".!?") {
		return text
	}
	return text + "."
}

// TextChunk is a contiguous slice of a larger text and its byte offset
type TextChunk struct {
	Offset int
	Text   string
}

// AudioChunk is one encoded slice of a downloaded audio file
type AudioChunk struct {
	Path    string
	Index   int
	StartMS int64
}

// StartSeconds returns the chunk's offset into the source audio
func (c AudioChunk) StartSeconds() float64 {
	return float64(c.StartMS) / 1000
}

// ChunkTranscription is the outcome of transcribing one audio chunk.
// A non-nil Err marks the chunk as missing.
type ChunkTranscription struct {
	Index int
	Start float64
	Text  string
	Err   error
}

// SectionNote is the output of one completion during multi-section synthesis.
// Index is the 1-based position among successful sections, Chunk the 1-based
// position of the transcript chunk it was generated from.
type SectionNote struct {
	Index int
	Chunk int
	Text  string
}

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a chat session log
type ChatMessage struct {
	Timestamp time.Time
	Role      Role
	Text      string
	Image     []byte
}

// String returns the message in "[15:04:05] role: text" form
func (m ChatMessage) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(time.TimeOnly), m.Role, m.Text)
}
