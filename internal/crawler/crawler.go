package crawler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nao1215/bilicrawl/internal/filter"
	"github.com/nao1215/bilicrawl/internal/model"
	"github.com/nao1215/bilicrawl/internal/parser"
	"github.com/nao1215/bilicrawl/internal/search"
)

// Crawl defaults.
const (
	// DefaultMaxPages is the page limit of one crawl.
	DefaultMaxPages = 40

	// DefaultDelay is the requested pause between pages.
	DefaultDelay = 1300 * time.Millisecond

	// MinDelay is the lower bound applied to the requested delay.
	MinDelay = 1200 * time.Millisecond

	// DefaultDelayJitter is the upper bound of the random time added to
	// each pause.
	DefaultDelayJitter = 600 * time.Millisecond
)

// blockedHint is logged when the API answers with the blocked code.
const blockedHint = "the API blocked the request (code -412): pass a browser cookie with --cookie, raise --delay or lower --max-pages"

// PageFetcher fetches one page of search results.
// *search.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, keyword string, page int) (*search.Response, error)
}

// jitterSource yields values in [0, 1).
type jitterSource interface {
	Float64() float64
}

// Crawler paginates the search results for a keyword.
type Crawler struct {
	// fetcher performs the HTTP requests, including rate-limit retries.
	fetcher PageFetcher

	// filter decides which parsed records are kept.
	filter *filter.Filter

	// maxPages is the last page number requested.
	maxPages int

	// delay is the pause between pages before the floor and jitter apply.
	delay time.Duration

	jitter time.Duration
	sleep  search.SleepFunc
	rng    jitterSource
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages sets the page limit. Values below zero are ignored.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.maxPages = n
		}
	}
}

// WithDelay sets the pause between pages. The effective pause is never
// shorter than MinDelay.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithDelayJitter sets the upper bound of the random time added to each
// pause.
func WithDelayJitter(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.jitter = d
		}
	}
}

// WithSleep replaces the sleep function used between pages.
func WithSleep(sleep search.SleepFunc) Option {
	return func(c *Crawler) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// withRand injects the jitter source.
func withRand(r jitterSource) Option {
	return func(c *Crawler) {
		c.rng = r
	}
}

// New creates a Crawler. A nil filter means filter.New().
func New(fetcher PageFetcher, f *filter.Filter, opts ...Option) *Crawler {
	if f == nil {
		f = filter.New()
	}
	c := &Crawler{
		fetcher:  fetcher,
		filter:   f,
		maxPages: DefaultMaxPages,
		delay:    DefaultDelay,
		jitter:   DefaultDelayJitter,
		sleep:    search.Sleep,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 2)), //nolint:gosec // Jitter only
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Crawl fetches pages 1..MaxPages for keyword until a stop condition is
// met. It never returns nil; records collected before a failure are kept
// and the failure is reported through StopReason and Err.
func (c *Crawler) Crawl(ctx context.Context, keyword string) *model.CrawlResult {
	result := model.NewCrawlResult(keyword)
	acc := model.NewRecordSet()

	finish := func(reason model.StopReason, err error) *model.CrawlResult {
		result.Records = acc.Records()
		result.Finish(reason, err)
		c.logger.Info("crawl finished",
			"keyword", keyword,
			"stop_reason", reason.String(),
			"pages", result.PagesFetched,
			"kept", len(result.Records),
			"elapsed", result.Elapsed(),
		)
		return result
	}

	for page := 1; ; page++ {
		if page > c.maxPages {
			return finish(model.StoppedMaxPages, nil)
		}
		if err := ctx.Err(); err != nil {
			return finish(model.StoppedError, err)
		}

		resp, err := c.fetcher.Fetch(ctx, keyword, page)
		if err != nil {
			c.logFetchError(keyword, page, err)
			return finish(model.StoppedError, err)
		}

		result.APICode = resp.Code()
		result.APIMessage = resp.Message()
		if result.APICode != 0 {
			apiErr := &APIError{Page: page, Code: result.APICode, Message: result.APIMessage}
			c.logger.Error("search API error",
				"keyword", keyword,
				"page", page,
				"code", apiErr.Code,
				"message", apiErr.Message,
			)
			if resp.IsBlocked() {
				c.logger.Warn(blockedHint)
			}
			return finish(model.StoppedError, apiErr)
		}
		result.PagesFetched++

		items := parser.Parse(resp.Body)
		result.ItemsSeen += len(items)
		if len(items) == 0 {
			c.logger.Info("no more results", "keyword", keyword, "page", page)
			return finish(model.StoppedEmpty, nil)
		}

		kept := c.filter.Apply(items)
		for _, r := range kept {
			acc.Add(r)
		}

		c.logger.Info("page crawled",
			"keyword", keyword,
			"page", page,
			"items", len(items),
			"matched", len(kept),
			"total", acc.Len(),
		)

		if err := c.sleep(ctx, c.pause()); err != nil {
			return finish(model.StoppedError, err)
		}
	}
}

// pause returns the wait before the next page.
func (c *Crawler) pause() time.Duration {
	d := max(c.delay, MinDelay)
	if c.jitter > 0 {
		d += time.Duration(c.rng.Float64() * float64(c.jitter))
	}
	return d
}

// logFetchError logs err with the most specific message available.
func (c *Crawler) logFetchError(keyword string, page int, err error) {
	var exhausted *search.ExhaustedRetriesError
	var status *search.StatusError
	switch {
	case errors.As(err, &exhausted):
		c.logger.Error("giving up after repeated rate limiting",
			"keyword", keyword,
			"page", page,
			"attempts", exhausted.Attempts,
			"last_status", exhausted.LastStatus,
		)
	case errors.As(err, &status):
		c.logger.Error("unexpected HTTP status",
			"keyword", keyword,
			"page", page,
			"status", status.StatusCode,
		)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("crawl interrupted", "keyword", keyword, "page", page)
	default:
		c.logger.Error("fetch failed", "keyword", keyword, "page", page, "error", err)
	}
}
