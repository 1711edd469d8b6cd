package internal

import (
	"context"
	"encoding/base64"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	ChatSystemPrompt = "You are a helpful AI assistant."
	ChatApology      = "I apologize, but I encountered an error processing your message. Please try again."

	chatMaxTokens = 3000
)

// Streamer performs a streaming chat completion. A non-nil error ends the sequence.
type Streamer interface {
	StreamChatCompletion(ctx context.Context, req ChatRequest) iter.Seq2[string, error]
}

// ChatStreamer answers one message at a time with streamed text fragments
type ChatStreamer struct {
	client      Streamer
	model       string
	visionModel string
	temperature float64
	log         zerolog.Logger
}

// NewChatStreamer creates a streamer using model for text and visionModel for images
func NewChatStreamer(client Streamer, model, visionModel string, logger zerolog.Logger) *ChatStreamer {
	return &ChatStreamer{
		client:      client,
		model:       model,
		visionModel: visionModel,
		temperature: 0.7,
		log:         logger,
	}
}

// Stream sends message, with image when non-empty, and yields the reply as it arrives.
// On a provider error it yields ChatApology once and stops. The sequence can be
// ranged over once; later iterations yield nothing.
func (c *ChatStreamer) Stream(ctx context.Context, message string, image []byte) iter.Seq[string] {
	req := c.request(message, image)

	var used atomic.Bool
	return func(yield func(string) bool) {
		if used.Swap(true) {
			return
		}

		for delta, err := range c.client.StreamChatCompletion(ctx, req) {
			if err != nil {
				c.log.Error().Err(err).Str("model", req.Model).Msg("error in chat processing")
				yield(ChatApology)
				return
			}
			if !yield(delta) {
				return
			}
		}
	}
}

func (c *ChatStreamer) request(message string, image []byte) ChatRequest {
	req := ChatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   chatMaxTokens,
	}

	if len(image) > 0 {
		if imageURL, ok := imageDataURL(image); ok {
			req.Model = c.visionModel
			req.Messages = []PromptMessage{{Role: RoleUser, Text: message, ImageURL: imageURL}}
			return req
		}
		c.log.Warn().Msg("attachment is not an image, sending text only")
		message = "[Image processing failed] " + message
	}

	req.Messages = []PromptMessage{
		{Role: RoleSystem, Text: ChatSystemPrompt},
		{Role: RoleUser, Text: message},
	}
	return req
}

// imageDataURL encodes image as a base64 data URL; ok is false for non-image data
func imageDataURL(image []byte) (string, bool) {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return "", false
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image), true
}

// MessageStreamer is the capability ChatSession needs from ChatStreamer
type MessageStreamer interface {
	Stream(ctx context.Context, message string, image []byte) iter.Seq[string]
}

// ChatSession keeps the append-only log of one conversation
type ChatSession struct {
	mu       sync.Mutex
	streamer MessageStreamer
	messages []ChatMessage
	now      func() time.Time
}

// NewChatSession creates an empty session
func NewChatSession(streamer MessageStreamer) *ChatSession {
	return &ChatSession{
		streamer: streamer,
		now:      time.Now,
	}
}

// Add appends a message stamped with the current time
func (s *ChatSession) Add(role Role, text string, image []byte) ChatMessage {
	msg := ChatMessage{
		Timestamp: s.now(),
		Role:      role,
		Text:      text,
		Image:     slices.Clone(image),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg
}

// Messages returns a copy of the log
func (s *ChatSession) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Clear drops the log
func (s *ChatSession) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Send records the user message, streams the reply to onDelta (may be nil)
// and records the complete reply.
func (s *ChatSession) Send(ctx context.Context, text string, image []byte, onDelta func(string)) ChatMessage {
	s.Add(RoleUser, text, image)

	var reply strings.Builder
	for delta := range s.streamer.Stream(ctx, text, image) {
		reply.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}

	return s.Add(RoleAssistant, reply.String(), nil)
}
