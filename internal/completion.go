package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Completer performs a single non-streaming chat completion
type Completer interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is a provider-neutral chat completion request
type ChatRequest struct {
	Model       string
	Messages    []PromptMessage
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// PromptMessage is one message of a ChatRequest. ImageURL is only honoured for user messages.
type PromptMessage struct {
	Role     Role
	Text     string
	ImageURL string
}

// RetryPolicy bounds retries of provider calls
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy matches the provider's free-tier limits
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 2,
	BaseDelay:  time.Second,
}

// normalized clamps negative values to zero so at least one attempt is made
func (p RetryPolicy) normalized() RetryPolicy {
	p.MaxRetries = max(p.MaxRetries, 0)
	p.BaseDelay = max(p.BaseDelay, 0)
	return p
}

// exponential returns BaseDelay * 2^attempt
func (p RetryPolicy) exponential(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// linear returns BaseDelay * (attempt+1)
func (p RetryPolicy) linear(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt+1)
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryingCompleter wraps a Completer with exponential backoff
type RetryingCompleter struct {
	client      Completer
	model       string
	temperature float64
	maxTokens   int
	policy      RetryPolicy
	timeout     time.Duration
	sleep       SleepFunc
	log         zerolog.Logger
}

// CompleterOption customizes a RetryingCompleter
type CompleterOption func(*RetryingCompleter)

// WithRetryPolicy overrides DefaultRetryPolicy
func WithRetryPolicy(policy RetryPolicy) CompleterOption {
	return func(r *RetryingCompleter) {
		r.policy = policy.normalized()
	}
}

// WithCompleterSleep replaces the blocking sleep between attempts
func WithCompleterSleep(sleep SleepFunc) CompleterOption {
	return func(r *RetryingCompleter) {
		r.sleep = sleep
	}
}

// WithCallTimeout bounds each individual attempt
func WithCallTimeout(timeout time.Duration) CompleterOption {
	return func(r *RetryingCompleter) {
		r.timeout = timeout
	}
}

// WithSampling sets temperature and the completion token limit
func WithSampling(temperature float64, maxTokens int) CompleterOption {
	return func(r *RetryingCompleter) {
		r.temperature = temperature
		r.maxTokens = maxTokens
	}
}

// WithCompleterLogger sets the logger used for retry and failure reports
func WithCompleterLogger(logger zerolog.Logger) CompleterOption {
	return func(r *RetryingCompleter) {
		r.log = logger
	}
}

// NewRetryingCompleter creates a completer for model backed by client
func NewRetryingCompleter(client Completer, model string, options ...CompleterOption) *RetryingCompleter {
	r := &RetryingCompleter{
		client:      client,
		model:       model,
		temperature: 0.7,
		policy:      DefaultRetryPolicy,
		sleep:       sleepContext,
		log:         zerolog.Nop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Complete sends content as the user message under systemPrompt.
// Attempt n (0-based) that fails is followed by a wait of BaseDelay*2^n, up to
// MaxRetries retries. Fatal errors are not retried. On exhaustion the returned
// error wraps ErrCompletionFailed and the last provider error.
func (r *RetryingCompleter) Complete(ctx context.Context, content, systemPrompt string) (string, error) {
	req := r.request(content, systemPrompt)

	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.call(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) == ClassFatal || attempt == r.policy.MaxRetries {
			break
		}

		wait := r.policy.exponential(attempt)
		r.log.Warn().Err(err).Int("retry", attempt+1).Dur("wait", wait).Msg("completion failed, retrying")
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.log.Error().Err(lastErr).Int("max_retries", r.policy.MaxRetries).Msg("completion failed")
	return "", fmt.Errorf("%w: %w", ErrCompletionFailed, lastErr)
}

func (r *RetryingCompleter) call(ctx context.Context, req ChatRequest) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.CreateChatCompletion(ctx, req)
}

func (r *RetryingCompleter) request(content, systemPrompt string) ChatRequest {
	messages := make([]PromptMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, PromptMessage{Role: RoleSystem, Text: systemPrompt})
	}
	messages = append(messages, PromptMessage{Role: RoleUser, Text: content})

	return ChatRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		TopP:        1,
	}
}
