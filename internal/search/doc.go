// Package search talks to the video search endpoint.
//
// Client keeps the HTTP session (headers, cookies, current User-Agent).
// Fetcher requests one result page at a time and handles rate limiting:
// HTTP 412, 429 and 418 are answered by rotating the User-Agent and waiting
// with exponential backoff (2s doubling to a 16s cap, plus up to 0.8s of
// jitter) for at most six attempts. Other failures are returned immediately.
//
// # Usage
//
//	client, err := search.NewClient(search.WithCookie(cookie))
//	if err != nil {
//		return err
//	}
//	fetcher := search.NewFetcher(client)
//	resp, err := fetcher.Fetch(ctx, "石宇奇", 1)
package search
