package search

import (
	"errors"
	"fmt"
	"net/http"
)

// Fetch errors.
//
// Callers match these with errors.Is; the typed errors below carry the page
// number and status for diagnostics.
var (
	// ErrExhaustedRetries is returned when every attempt for a page was
	// answered with a rate-limiting status.
	ErrExhaustedRetries = errors.New("exhausted retries on rate-limited responses")

	// ErrUnexpectedStatus is returned for a non-200 status that is not a
	// rate-limiting status. These are not retried.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidJSON is returned when a 200 response body is not JSON.
	ErrInvalidJSON = errors.New("response body is not valid JSON")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// ExhaustedRetriesError names the page that could not be fetched.
type ExhaustedRetriesError struct {
	Page       int
	Attempts   int
	LastStatus int
}

// Error implements error.
func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("too many %d/%d/%d responses on page %d (%d attempts, last HTTP %d)",
		http.StatusPreconditionFailed, http.StatusTooManyRequests, http.StatusTeapot,
		e.Page, e.Attempts, e.LastStatus)
}

// Unwrap returns ErrExhaustedRetries.
func (e *ExhaustedRetriesError) Unwrap() error {
	return ErrExhaustedRetries
}

// StatusError is a hard HTTP failure for one page.
type StatusError struct {
	Page       int
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("page %d: HTTP %d %s", e.Page, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// IsRateLimitStatus reports whether code signals anti-automation defenses
// and should be answered with backoff instead of failing.
func IsRateLimitStatus(code int) bool {
	switch code {
	case http.StatusPreconditionFailed, http.StatusTooManyRequests, http.StatusTeapot:
		return true
	}
	return false
}
