package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Common errors returned by the client.
var (
	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRequestBlocked is returned when the rate limit gate refuses a request.
	ErrRequestBlocked = errors.New("request blocked: rate limit critical")
)

// APIError represents an upstream task API error with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// RetryAfter is the upstream wait hint from a 429 response.
	// Zero when the upstream supplied no hint.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("motion %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("motion %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// OutcomeKind describes the retry executor's decision about one attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the attempt succeeded and its value is final.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryable means the attempt failed but another may succeed.
	OutcomeRetryable

	// OutcomeFatal means retrying cannot succeed; the failure propagates
	// immediately without further attempts.
	OutcomeFatal
)

// AttemptOutcome is the classification of a single attempt result.
// Hint, when set, is an upstream-directed wait that replaces computed backoff
// before the next attempt.
type AttemptOutcome struct {
	Kind  OutcomeKind
	Class ErrorClass
	Hint  time.Duration
}

// classifyOutcome maps an attempt error to an AttemptOutcome.
//
// Rate-limit (429), server (5xx) and transport failures are retryable; any
// other 4xx is fatal because repeating a malformed or unauthorized request
// cannot succeed.
func classifyOutcome(err error) AttemptOutcome {
	if err == nil {
		return AttemptOutcome{Kind: OutcomeSuccess}
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Errors without HTTP context (timeouts, connection resets) are
		// treated as transport failures.
		return AttemptOutcome{Kind: OutcomeRetryable, Class: ErrorClassNetwork}
	}

	switch apiErr.ErrorClass {
	case ErrorClassRateLimit:
		return AttemptOutcome{Kind: OutcomeRetryable, Class: ErrorClassRateLimit, Hint: apiErr.RetryAfter}
	case ErrorClassServer, ErrorClassNetwork:
		return AttemptOutcome{Kind: OutcomeRetryable, Class: apiErr.ErrorClass}
	default:
		return AttemptOutcome{Kind: OutcomeFatal, Class: ErrorClassClient}
	}
}

// newAPIError builds an APIError from an HTTP error response (status >= 400).
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.ErrorClass = ErrorClassRateLimit
		apiErr.RetryAfter = parseRetryAfter(resp.Header)
	case resp.StatusCode >= 500:
		apiErr.ErrorClass = ErrorClassServer
	default:
		apiErr.ErrorClass = ErrorClassClient
	}

	return apiErr
}

// parseRetryAfter reads the Retry-After header as either an integer second
// count or an HTTP date. Returns 0 when absent or unparseable.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		wait := time.Until(at)
		if wait < 0 {
			return 0
		}
		return wait
	}

	return 0
}
