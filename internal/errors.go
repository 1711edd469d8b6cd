package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
)

var (
	ErrInvalidVideoID   = errors.New("invalid YouTube video ID")
	ErrNoCaptions       = errors.New("no captions available")
	ErrDownloadFailed   = errors.New("download failed")
	ErrChunkTooLarge    = errors.New("audio chunk exceeds transcription size limit")
	ErrNoTranscript     = errors.New("no transcript")
	ErrEmptyTranscript  = errors.New("transcript is empty")
	ErrCompletionFailed = errors.New("completion failed after retries")
	ErrNoSections       = errors.New("no section notes could be generated")
	ErrFallbackDeclined = errors.New("audio transcription declined")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// ErrorClass tags a provider failure for retry decisions
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassRateLimited
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// StatusError carries an HTTP status from a provider that is not the OpenAI SDK
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", http.StatusText(e.StatusCode), e.Err)
	}
	return http.StatusText(e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ClassifyError maps provider-specific error shapes onto an ErrorClass.
// Unknown errors are treated as transient.
func ClassifyError(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassTransient
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrChunkTooLarge),
		errors.Is(err, ErrInvalidVideoID):
		return ClassFatal
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate_limit") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return ClassRateLimited
	}

	return ClassTransient
}

func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusConflict, code >= 500:
		return ClassTransient
	case code >= 400:
		return ClassFatal
	default:
		return ClassTransient
	}
}
