package internal

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// LLMClient is everything the pipeline needs from a provider
type LLMClient interface {
	Completer
	Streamer
	Transcriber
}

// OpenAIClient talks to any OpenAI-compatible endpoint (Groq by default)
type OpenAIClient struct {
	client             openai.Client
	apiKey             string
	transcriptionModel string
}

// NewOpenAIClient creates a client for baseURL. The SDK's own retries are
// disabled; retry policy belongs to the pipeline.
func NewOpenAIClient(apiKey, baseURL, transcriptionModel string) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:             openai.NewClient(opts...),
		apiKey:             apiKey,
		transcriptionModel: transcriptionModel,
	}
}

// CreateChatCompletion implements Completer
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	if err := ValidateAPIKey(c.apiKey); err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, chatParams(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from provider")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChatCompletion implements Streamer. A provider error ends the sequence.
func (c *OpenAIClient) StreamChatCompletion(ctx context.Context, req ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := ValidateAPIKey(c.apiKey); err != nil {
			yield("", err)
			return
		}

		stream := c.client.Chat.Completions.NewStreaming(ctx, chatParams(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

// CreateTranscription implements Transcriber
func (c *OpenAIClient) CreateTranscription(ctx context.Context, audioFile string) (string, error) {
	if err := ValidateAPIKey(c.apiKey); err != nil {
		return "", err
	}

	file, err := os.Open(audioFile)
	if err != nil {
		return "", fmt.Errorf("opening audio chunk: %w", err)
	}
	defer file.Close()

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModel(c.transcriptionModel),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func chatParams(req ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: chatMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	return params
}

func chatMessages(messages []PromptMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Text))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Text))
		default:
			if m.ImageURL == "" {
				out = append(out, openai.UserMessage(m.Text))
				continue
			}
			out = append(out, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Text),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: m.ImageURL,
				}),
			}))
		}
	}
	return out
}
