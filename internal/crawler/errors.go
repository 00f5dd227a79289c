package crawler

import (
	"errors"
	"fmt"

	"github.com/nao1215/bilicrawl/internal/search"
)

var (
	// ErrAPI is returned when a page carries a non-zero top-level code.
	ErrAPI = errors.New("search API returned an error code")

	// ErrBlocked is returned when the API reports that anti-bot protection
	// rejected the request.
	ErrBlocked = errors.New("request blocked by anti-bot protection")
)

// APIError describes a non-zero top-level code in a 200 response.
type APIError struct {
	Page    int
	Code    int
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("page %d: API code %d", e.Page, e.Code)
	}
	return fmt.Sprintf("page %d: API code %d: %s", e.Page, e.Code, e.Message)
}

// Unwrap returns ErrBlocked for the blocked code and ErrAPI otherwise.
func (e *APIError) Unwrap() error {
	if e.Code == search.BlockedCode {
		return ErrBlocked
	}
	return ErrAPI
}
