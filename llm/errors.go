package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError is the base error type for failures reported by an upstream
// model backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// UnavailableError covers connection failures, auth failures, and upstream
// server errors. Transient; eligible for retry.
type UnavailableError struct{ ProviderError }

// RateLimitedError is reported when the provider throttles the request.
// Transient; eligible for retry. RetryAfter, when set, is the provider's
// suggested wait in seconds.
type RateLimitedError struct {
	ProviderError
	RetryAfter *float64
}

// BadRequestError covers invalid parameters: unknown model, malformed
// messages, context overflow. Never retried.
type BadRequestError struct{ ProviderError }

// Unavailablef builds an UnavailableError.
func Unavailablef(provider string, cause error, format string, args ...interface{}) error {
	return &UnavailableError{ProviderError{
		Provider: provider,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}}
}

// RateLimited builds a RateLimitedError.
func RateLimited(provider string, cause error, retryAfter *float64) error {
	return &RateLimitedError{
		ProviderError: ProviderError{
			Provider:   provider,
			StatusCode: 429,
			Message:    "rate limited",
			Cause:      cause,
		},
		RetryAfter: retryAfter,
	}
}

// BadRequestf builds a BadRequestError.
func BadRequestf(provider string, cause error, format string, args ...interface{}) error {
	return &BadRequestError{ProviderError{
		Provider:   provider,
		StatusCode: 400,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
	}}
}

// IsRetryable reports whether the retry controller may issue another attempt
// for err. Only transient provider failures qualify; everything else,
// including unknown errors, fails fast.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var unavailable *UnavailableError
	var rateLimited *RateLimitedError
	switch {
	case errors.As(err, &unavailable):
		return true
	case errors.As(err, &rateLimited):
		return true
	default:
		return false
	}
}

// ClassifyProviderError maps an error bubbled out of a provider SDK into the
// unified taxonomy. gollm surfaces upstream failures as flat strings, so
// classification falls back to message inspection, mirroring the status-code
// mapping: 4xx parameter problems are bad requests, throttling is rate
// limiting, and everything connection- or server-shaped is unavailable.
func ClassifyProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err // already classified
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return RateLimited(provider, err, nil)
	case strings.Contains(msg, "400") || strings.Contains(msg, "422") ||
		strings.Contains(msg, "invalid request") || strings.Contains(msg, "invalid parameter") ||
		strings.Contains(msg, "context length") || strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "model not found") || strings.Contains(msg, "unknown model"):
		return BadRequestf(provider, err, "%v", err)
	default:
		return Unavailablef(provider, err, "%v", err)
	}
}
