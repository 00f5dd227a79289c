package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Search endpoint defaults.
const (
	// DefaultEndpoint is the typed search endpoint of the web API.
	DefaultEndpoint = "https://api.bilibili.com/x/web-interface/search/type"

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 50

	// DefaultOrder sorts results by publish date, newest first.
	DefaultOrder = "pubdate"

	// DefaultBackoffJitter is the upper bound of the random delay added to
	// each backoff sleep.
	DefaultBackoffJitter = 800 * time.Millisecond

	// maxBodySize bounds the JSON body read for one page.
	maxBodySize = 8 * 1024 * 1024
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetcher requests result pages and recovers from rate limiting with
// exponential backoff and User-Agent rotation.
type Fetcher struct {
	client   *Client
	endpoint string
	pageSize int
	order    string

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	jitter         time.Duration

	sleep  SleepFunc
	rng    randSource
	now    func() time.Time
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithEndpoint overrides the search endpoint URL.
func WithEndpoint(endpoint string) FetcherOption {
	return func(f *Fetcher) {
		if endpoint != "" {
			f.endpoint = endpoint
		}
	}
}

// WithPageSize sets the page_size query parameter.
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithOrder sets the order query parameter (e.g. "pubdate", "click").
func WithOrder(order string) FetcherOption {
	return func(f *Fetcher) {
		if order != "" {
			f.order = order
		}
	}
}

// WithBackoff sets the retry policy for rate-limited responses.
func WithBackoff(initial, maxDelay time.Duration, maxAttempts int) FetcherOption {
	return func(f *Fetcher) {
		f.initialBackoff = initial
		f.maxBackoff = maxDelay
		f.maxAttempts = maxAttempts
	}
}

// WithBackoffJitter sets the upper bound of the random delay added to
// each backoff sleep.
func WithBackoffJitter(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d >= 0 {
			f.jitter = d
		}
	}
}

// WithSleep replaces the sleep function. Tests use it to avoid real waits.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// withClock injects the clock used for the cache-busting parameter.
func withClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewFetcher creates a Fetcher that sends requests through client.
func NewFetcher(client *Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:         client,
		endpoint:       DefaultEndpoint,
		pageSize:       DefaultPageSize,
		order:          DefaultOrder,
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		jitter:         DefaultBackoffJitter,
		sleep:          Sleep,
		rng:            rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)), //nolint:gosec // Jitter only
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Params builds the query for one page. t is a cache buster in epoch
// milliseconds; it does not affect the result.
func (f *Fetcher) Params(keyword string, page int) url.Values {
	v := url.Values{}
	v.Set("search_type", "video")
	v.Set("keyword", keyword)
	v.Set("page", strconv.Itoa(page))
	v.Set("page_size", strconv.Itoa(f.pageSize))
	v.Set("order", f.order)
	v.Set("t", strconv.FormatInt(f.now().UnixMilli(), 10))
	return v
}

// Fetch requests one page of results for keyword.
//
// A 200 response returns the decoded body. A rate-limiting status rotates
// the User-Agent, sleeps for the current backoff plus jitter and retries;
// once the attempts are used up Fetch returns an *ExhaustedRetriesError.
// Any other status returns a *StatusError without retrying, and transport
// errors (including the request timeout) are returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, keyword string, page int) (*Response, error) {
	bo := NewBackoff(f.initialBackoff, f.maxBackoff, f.maxAttempts)
	lastStatus := 0

	for !bo.Exhausted() {
		resp, status, err := f.attempt(ctx, keyword, page)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK {
			return resp, nil
		}
		if !IsRateLimitStatus(status) {
			return nil, &StatusError{Page: page, StatusCode: status}
		}

		lastStatus = status
		delay := bo.Next()
		ua := f.client.RotateUserAgent()
		wait := delay + f.randomJitter()

		f.logger.Warn("rate limited, backing off",
			"status", status,
			"page", page,
			"attempt", bo.Attempts(),
			"backoff", delay,
			"user_agent", ua,
		)

		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedRetriesError{
		Page:       page,
		Attempts:   bo.Attempts(),
		LastStatus: lastStatus,
	}
}

// attempt performs one request. The body is decoded only for 200 responses.
func (f *Fetcher) attempt(ctx context.Context, keyword string, page int) (*Response, int, error) {
	f.logger.Debug("requesting page", "page", page, "user_agent", f.client.UserAgent())

	httpResp, err := f.client.Get(ctx, f.endpoint, f.Params(keyword, page))
	if err != nil {
		return nil, 0, fmt.Errorf("request page %d: %w", page, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxBodySize)) //nolint:errcheck // Best effort
		return nil, httpResp.StatusCode, nil
	}

	resp, err := DecodeResponse(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("page %d: %w", page, err)
	}
	return resp, httpResp.StatusCode, nil
}

// randomJitter returns a duration in [0, jitter).
func (f *Fetcher) randomJitter() time.Duration {
	if f.jitter <= 0 {
		return 0
	}
	return time.Duration(f.rng.Float64() * float64(f.jitter))
}

// DecodeResponse decodes a JSON body. Numbers are kept as json.Number so
// large ids survive unchanged.
func DecodeResponse(r io.Reader) (*Response, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return &Response{Body: body}, nil
}
