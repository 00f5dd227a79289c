package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/bilicrawl/internal/filter"
	"github.com/nao1215/bilicrawl/internal/model"
)

func TestBatchRunner(t *testing.T) {
	t.Parallel()

	t.Run("results follow keyword order", func(t *testing.T) {
		t.Parallel()

		var built atomic.Int32
		factory := func(keyword string) (*Crawler, error) {
			built.Add(1)
			f := &fakeFetcher{t: t, bodies: map[int]string{
				1: page(item("BV-"+keyword, "石宇奇 决赛 "+keyword)),
			}}
			return New(f, filter.New(), WithSleep((&sleepRecorder{}).sleep), WithLogger(discardLogger())), nil
		}

		keywords := []string{"a", "b", "c", "d"}
		runner := NewBatchRunner(factory, WithConcurrency(3), WithBatchLogger(discardLogger()))
		results, err := runner.Run(context.Background(), keywords)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(results) != len(keywords) {
			t.Fatalf("expected %d results, got %d", len(keywords), len(results))
		}
		for i, kw := range keywords {
			if results[i].Keyword != kw {
				t.Errorf("result %d: expected keyword %q, got %q", i, kw, results[i].Keyword)
			}
			if len(results[i].Records) != 1 || results[i].Records[0].VideoID != "BV-"+kw {
				t.Errorf("result %d: unexpected records %+v", i, results[i].Records)
			}
		}
		if built.Load() != int32(len(keywords)) {
			t.Errorf("expected one crawler per keyword, built %d", built.Load())
		}
	})

	t.Run("factory error becomes a failed result", func(t *testing.T) {
		t.Parallel()

		factoryErr := errors.New("bad proxy")
		factory := func(keyword string) (*Crawler, error) {
			if keyword == "bad" {
				return nil, factoryErr
			}
			return New(&fakeFetcher{t: t}, nil, WithLogger(discardLogger())), nil
		}

		results, err := NewBatchRunner(factory, WithBatchLogger(discardLogger())).
			Run(context.Background(), []string{"good", "bad"})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if results[0].StopReason != model.StoppedEmpty {
			t.Errorf("expected stopped_empty for good keyword, got %s", results[0].StopReason)
		}
		if results[1].StopReason != model.StoppedError || !errors.Is(results[1].Err, factoryErr) {
			t.Errorf("unexpected failed result %s %v", results[1].StopReason, results[1].Err)
		}
	})

	t.Run("result handler sees every crawl", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := map[int]string{}
		factory := func(string) (*Crawler, error) {
			return New(&fakeFetcher{t: t}, nil, WithLogger(discardLogger())), nil
		}
		runner := NewBatchRunner(factory,
			WithBatchLogger(discardLogger()),
			WithResultHandler(func(i int, r *model.CrawlResult) {
				mu.Lock()
				defer mu.Unlock()
				seen[i] = r.Keyword
			}),
		)
		if _, err := runner.Run(context.Background(), []string{"x", "y"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if seen[0] != "x" || seen[1] != "y" {
			t.Errorf("unexpected handler calls %v", seen)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		factory := func(string) (*Crawler, error) {
			return New(&fakeFetcher{t: t}, nil, WithLogger(discardLogger())), nil
		}
		results, err := NewBatchRunner(factory, WithBatchLogger(discardLogger())).Run(ctx, []string{"x", "y"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for i, r := range results {
			if r == nil || r.StopReason != model.StoppedError {
				t.Errorf("result %d: expected stopped_error, got %+v", i, r)
			}
		}
	})

	t.Run("default concurrency is sequential", func(t *testing.T) {
		t.Parallel()

		runner := NewBatchRunner(nil, WithConcurrency(0))
		if runner.concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", runner.concurrency)
		}
	})
}
