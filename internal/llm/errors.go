package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType categorizes completion failures for logs and metrics.
type ErrorType string

const (
	ErrorTypeUnknown         ErrorType = "unknown"
	ErrorTypeUnreachable     ErrorType = "unreachable"
	ErrorTypeContextOverflow ErrorType = "context_overflow"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeOverloaded      ErrorType = "overloaded"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeBilling         ErrorType = "billing"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeFormat          ErrorType = "format"
	ErrorTypeEmpty           ErrorType = "empty_response"
)

// TransportError is returned by every Client when a completion could not be
// obtained: the endpoint was unreachable, answered with a non-success status,
// returned an error envelope, or returned something that could not be decoded.
// Callers are expected to surface a generic apology and log the details.
type TransportError struct {
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Type       ErrorType
	Err        error
}

func (e *TransportError) Error() string {
	var sb strings.Builder
	sb.WriteString("completion failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is (or wraps) a *TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// newTransportError classifies and builds a TransportError
func newTransportError(status int, msg string, err error) *TransportError {
	te := &TransportError{StatusCode: status, Message: msg, Err: err}
	te.Type = ClassifyStatus(status)
	if te.Type == ErrorTypeUnknown && err != nil && isTimeout(err) {
		te.Type = ErrorTypeTimeout
	}
	if te.Type == ErrorTypeUnknown {
		text := msg
		if text == "" && err != nil {
			text = err.Error()
		}
		te.Type = ClassifyError(text)
	}
	if te.Type == ErrorTypeUnknown && status == 0 && err != nil {
		te.Type = ErrorTypeUnreachable
	}
	return te
}

// ClassifyStatus maps an HTTP status onto an ErrorType
func ClassifyStatus(status int) ErrorType {
	switch status {
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusPaymentRequired:
		return ErrorTypeBilling
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusServiceUnavailable, 529:
		return ErrorTypeOverloaded
	case http.StatusRequestEntityTooLarge:
		return ErrorTypeContextOverflow
	default:
		return ErrorTypeUnknown
	}
}

// errorPatterns is checked in order, most specific first
var errorPatterns = []struct {
	typ      ErrorType
	patterns []string
}{
	{ErrorTypeContextOverflow, []string{
		"context_length_exceeded", "context length exceeded", "maximum context length",
		"context size has been exceeded", "prompt is too long", "request_too_large",
		"exceeds model context window", "exceeded model token limit",
	}},
	{ErrorTypeRateLimit, []string{
		"rate_limit", "rate limit", "too many requests", "exceeded your current quota",
		"quota exceeded", "resource_exhausted", "requests per minute",
	}},
	{ErrorTypeOverloaded, []string{
		"overloaded", "server is busy", "temporarily unavailable", "capacity",
	}},
	{ErrorTypeBilling, []string{
		"payment required", "insufficient credits", "credit balance", "insufficient_quota", "billing",
	}},
	{ErrorTypeAuth, []string{
		"invalid api key", "invalid_api_key", "incorrect api key", "unauthorized",
		"authentication", "no api key", "invalid credentials", "forbidden",
	}},
	{ErrorTypeTimeout, []string{
		"timeout", "timed out", "deadline exceeded", "connection reset",
	}},
	{ErrorTypeFormat, []string{
		"invalid_request_error", "roles must alternate", "tool_call_id", "malformed", "schema validation",
	}},
}

// ClassifyError determines the error type from an error message.
// Returns ErrorTypeUnknown if the message doesn't match any known pattern.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	lower := strings.ToLower(msg)
	for _, group := range errorPatterns {
		for _, p := range group.patterns {
			if strings.Contains(lower, p) {
				return group.typ
			}
		}
	}
	return ErrorTypeUnknown
}

// isTimeout reports whether err was a client-side timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
