package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"openai 429", &openai.Error{StatusCode: 429}, ClassRateLimited},
		{"openai 500", &openai.Error{StatusCode: 500}, ClassTransient},
		{"openai 401", &openai.Error{StatusCode: 401}, ClassFatal},
		{"wrapped status 429", fmt.Errorf("calling: %w", &StatusError{StatusCode: 429}), ClassRateLimited},
		{"status 408", &StatusError{StatusCode: 408}, ClassTransient},
		{"status 400", &StatusError{StatusCode: 400}, ClassFatal},
		{"rate limit message", errors.New("Error code: rate_limit_exceeded"), ClassRateLimited},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), ClassFatal},
		{"per-call deadline", context.DeadlineExceeded, ClassTransient},
		{"chunk too large", fmt.Errorf("chunk: %w", ErrChunkTooLarge), ClassFatal},
		{"unknown", errors.New("boom"), ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	inner := errors.New("slow down")
	err := &StatusError{StatusCode: 429, Err: inner}

	assert.Equal(t, "Too Many Requests: slow down", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "Internal Server Error", (&StatusError{StatusCode: 500}).Error())
	assert.Equal(t, "rate_limited", ClassRateLimited.String())
}
