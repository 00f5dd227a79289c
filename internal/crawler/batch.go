package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/bilicrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Factory builds the Crawler for one keyword. It is called once per
// keyword so that HTTP sessions are never shared between crawls.
type Factory func(keyword string) (*Crawler, error)

// BatchRunner crawls several keywords with bounded concurrency.
type BatchRunner struct {
	factory Factory

	// concurrency is the maximum number of crawls in flight.
	concurrency int

	// onResult, when set, is called as each crawl completes. It may be
	// called from several goroutines at once.
	onResult func(index int, result *model.CrawlResult)

	logger *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 1, which runs the keywords strictly one after another.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithResultHandler registers a callback invoked for each finished crawl.
func WithResultHandler(fn func(index int, result *model.CrawlResult)) BatchOption {
	return func(b *BatchRunner) {
		b.onResult = fn
	}
}

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// NewBatchRunner creates a BatchRunner that builds crawlers with factory.
func NewBatchRunner(factory Factory, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		factory:     factory,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Run crawls every keyword and returns the results in keyword order.
//
// A failing crawl does not stop the others; its result carries
// StoppedError. If the factory fails for a keyword, that keyword gets a
// StoppedError result with no records. Run only returns an error when ctx
// is cancelled before every keyword was started; the results slice is
// still fully populated in that case.
func (b *BatchRunner) Run(ctx context.Context, keywords []string) ([]*model.CrawlResult, error) {
	b.logger.Info("starting batch",
		"keywords", len(keywords),
		"concurrency", b.concurrency,
	)
	start := time.Now()

	results := make([]*model.CrawlResult, len(keywords))

	// Each slot is written by exactly one goroutine, so no lock is needed.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, keyword := range keywords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result := model.NewCrawlResult(keyword)
				result.Finish(model.StoppedError, err)
				results[i] = result
				return err
			}

			results[i] = b.crawlOne(gctx, keyword)
			if b.onResult != nil {
				b.onResult(i, results[i])
			}
			return nil
		})
	}

	err := g.Wait()

	b.logger.Info("batch complete",
		"keywords", len(keywords),
		"elapsed", time.Since(start),
	)

	return results, err
}

// crawlOne builds a crawler for keyword and runs it.
func (b *BatchRunner) crawlOne(ctx context.Context, keyword string) *model.CrawlResult {
	c, err := b.factory(keyword)
	if err != nil {
		b.logger.Error("cannot create crawler", "keyword", keyword, "error", err)
		result := model.NewCrawlResult(keyword)
		result.Finish(model.StoppedError, fmt.Errorf("create crawler for %q: %w", keyword, err))
		return result
	}
	return c.Crawl(ctx, keyword)
}
