// Package crawler drives the paginated search crawl for one keyword.
//
// # Architecture
//
// A Crawler owns one page fetcher and one filter. Crawl walks the result
// pages in order starting at page 1, parses each page, keeps the records
// that pass the filter and merges them into a deduplicated accumulator.
// The loop stops on the first of:
//
//   - a fetch failure, including exhausted rate-limit retries (stopped_error)
//   - a non-zero top-level API code (stopped_error)
//   - a page with no results (stopped_empty)
//   - the page limit (stopped_max_pages)
//   - context cancellation (stopped_error)
//
// Whatever was accumulated is always returned in the CrawlResult.
//
// # Politeness
//
// After every non-empty page the crawler sleeps for max(delay, 1.2s) plus a
// random jitter below 0.6s, including the page that reaches the limit.
//
// # Batches
//
// BatchRunner crawls several keywords, building a fresh Crawler (and so a
// fresh HTTP session) for each one. Concurrency defaults to 1.
//
// # Usage
//
//	client, err := search.NewClient(search.WithCookie(cookie))
//	c := crawler.New(search.NewFetcher(client), filter.New(), crawler.WithMaxPages(40))
//	result := c.Crawl(ctx, "石宇奇 比赛 录像")
package crawler
