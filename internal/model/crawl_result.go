package model

import (
	"encoding/json"
	"time"
)

// StopReason describes why a crawl loop ended.
type StopReason int

const (
	// Running is the only non-terminal state.
	Running StopReason = iota

	// StoppedEmpty means a page parsed to zero results; the end of the
	// result list was reached.
	StoppedEmpty

	// StoppedError means a fetch failed, retries were exhausted, the API
	// answered with a non-zero code, or the crawl was cancelled.
	StoppedError

	// StoppedMaxPages means the page limit was reached.
	StoppedMaxPages
)

// String returns the lower-case name used in logs and the run history.
func (s StopReason) String() string {
	switch s {
	case Running:
		return "running"
	case StoppedEmpty:
		return "stopped_empty"
	case StoppedError:
		return "stopped_error"
	case StoppedMaxPages:
		return "stopped_max_pages"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the crawl loop has ended.
func (s StopReason) IsTerminal() bool {
	return s != Running
}

// ParseStopReason converts the String form back to a StopReason.
// Unknown names map to StoppedError.
func ParseStopReason(s string) StopReason {
	switch s {
	case "running":
		return Running
	case "stopped_empty":
		return StoppedEmpty
	case "stopped_max_pages":
		return StoppedMaxPages
	default:
		return StoppedError
	}
}

// MarshalJSON encodes the reason by name.
func (s StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a reason written by MarshalJSON.
func (s *StopReason) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseStopReason(name)
	return nil
}

// CrawlResult is what one crawl invocation hands back to its caller.
//
// Records are always populated with whatever was accumulated, regardless
// of StopReason. Err holds the terminating error for StoppedError and is
// nil otherwise.
type CrawlResult struct {
	Keyword string `json:"keyword"`

	Records []SearchRecord `json:"records"`

	StopReason StopReason `json:"stop_reason"`

	// PagesFetched counts pages that returned a usable response.
	PagesFetched int `json:"pages_fetched"`

	// ItemsSeen counts parsed items before filtering.
	ItemsSeen int `json:"items_seen"`

	// APICode and APIMessage are the last top-level code/message seen.
	APICode    int    `json:"api_code"`
	APIMessage string `json:"api_message,omitempty"`

	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialization.
	ErrorMessage string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlResult creates a result for keyword in the Running state.
func NewCrawlResult(keyword string) *CrawlResult {
	return &CrawlResult{
		Keyword:    keyword,
		Records:    make([]SearchRecord, 0),
		StopReason: Running,
		StartedAt:  time.Now(),
	}
}

// Finish records the terminal state and error.
func (r *CrawlResult) Finish(reason StopReason, err error) {
	r.StopReason = reason
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.FinishedAt = time.Now()
}

// Elapsed returns the wall-clock duration of the crawl.
func (r *CrawlResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
