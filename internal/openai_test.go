package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient("test-key", srv.URL+"/", "whisper-large-v3")
}

func TestOpenAIClientChatCompletion(t *testing.T) {
	var body map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Some notes"}}]}`)
	})

	got, err := client.CreateChatCompletion(context.Background(), ChatRequest{
		Model: "llama",
		Messages: []PromptMessage{
			{Role: RoleSystem, Text: "system"},
			{Role: RoleUser, Text: "content"},
		},
		Temperature: 0.7,
		MaxTokens:   6000,
		TopP:        1,
	})

	require.NoError(t, err)
	assert.Equal(t, "Some notes", got)
	assert.Equal(t, "llama", body["model"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, 6000.0, body["max_tokens"])
	assert.Equal(t, 1.0, body["top_p"])
	assert.Len(t, body["messages"], 2)
}

func TestOpenAIClientRateLimitIsClassified(t *testing.T) {
	calls := 0
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	})

	_, err := client.CreateChatCompletion(context.Background(), ChatRequest{Model: "llama"})

	require.Error(t, err)
	assert.Equal(t, ClassRateLimited, ClassifyError(err))
	assert.Equal(t, 1, calls, "the SDK must not retry on its own")
}

func TestOpenAIClientStreaming(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"s\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var sb strings.Builder
	for delta, err := range client.StreamChatCompletion(context.Background(), ChatRequest{Model: "m"}) {
		require.NoError(t, err)
		sb.WriteString(delta)
	}

	assert.Equal(t, "Hello", sb.String())
}

func TestOpenAIClientTranscription(t *testing.T) {
	audio := writeTempFile(t.TempDir(), "chunk_0.mp3", 32)
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))

		if file, _, err := r.FormFile("file"); assert.NoError(t, err) {
			data, _ := io.ReadAll(file)
			assert.Len(t, data, 32)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"spoken words"}`)
	})

	got, err := client.CreateTranscription(context.Background(), audio)

	require.NoError(t, err)
	assert.Equal(t, "spoken words", got)
}

func TestOpenAIClientRequiresAPIKey(t *testing.T) {
	client := NewOpenAIClient("", "", "whisper-large-v3")

	_, err := client.CreateChatCompletion(context.Background(), ChatRequest{})
	assert.ErrorContains(t, err, "API key is required")

	for _, err := range client.StreamChatCompletion(context.Background(), ChatRequest{}) {
		assert.ErrorContains(t, err, "API key is required")
	}
}

func TestChatMessagesWithImage(t *testing.T) {
	messages := chatMessages([]PromptMessage{
		{Role: RoleUser, Text: "what is this?", ImageURL: "data:image/png;base64,AAAA"},
	})

	data, err := json.Marshal(messages)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}
	]}]`, string(data))
}
