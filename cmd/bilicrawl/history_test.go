package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/bilicrawl/internal/database"
	"github.com/nao1215/bilicrawl/internal/export"
	"github.com/nao1215/bilicrawl/internal/model"
)

// seedRun stores a finished run with records and returns its ID.
func seedRun(t *testing.T, dbDir, keyword string, reason model.StopReason, records ...model.SearchRecord) int64 {
	t.Helper()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	result := model.NewCrawlResult(keyword)
	result.Records = records
	result.PagesFetched = 1
	result.ItemsSeen = len(records)
	var runErr error
	if reason == model.StoppedError {
		runErr = errors.New("api error on page 2: code -412")
	}
	result.Finish(reason, runErr)

	id, err := db.SaveRun(context.Background(), result)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	return id
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		err := runHistory(context.Background(), t.TempDir(), historyOptions{}, &bytes.Buffer{})
		if !errors.Is(err, errNoHistory) {
			t.Errorf("expected errNoHistory, got %v", err)
		}
	})

	dir := t.TempDir()
	seedRun(t, dir, "石宇奇 决赛", model.StoppedEmpty, model.SearchRecord{VideoID: "BV1", Title: "石宇奇 决赛"})
	blockedID := seedRun(t, dir, "石宇奇 比赛 录像", model.StoppedError,
		model.SearchRecord{VideoID: "BV2", Title: "石宇奇 全场"},
		model.SearchRecord{VideoID: "BV3", Title: "石宇奇 集锦"},
	)

	tests := []struct {
		name    string
		opts    historyOptions
		want    []string
		notWant []string
	}{
		{
			name: "lists every run",
			opts: historyOptions{format: export.FormatCSV},
			want: []string{"Crawl history (2 runs)", "石宇奇 决赛", "石宇奇 比赛 录像", "stopped_error", "code -412"},
		},
		{
			name:    "filters by keyword",
			opts:    historyOptions{keyword: "石宇奇 决赛", format: export.FormatCSV},
			want:    []string{"Crawl history (1 runs)", "stopped_empty"},
			notWant: []string{"石宇奇 比赛 录像"},
		},
		{
			name: "unknown keyword",
			opts: historyOptions{keyword: "林丹", format: export.FormatCSV},
			want: []string{`No runs found for "林丹"`},
		},
		{
			name: "markdown table",
			opts: historyOptions{markdown: true, format: export.FormatCSV},
			want: []string{"# Crawl History", "石宇奇 决赛", "stopped_error"},
		},
		{
			name: "lists keywords",
			opts: historyOptions{keywords: true, format: export.FormatCSV},
			want: []string{"Crawled keywords (2)", "石宇奇 决赛", "石宇奇 比赛 录像"},
		},
		{
			name: "prints run records",
			opts: historyOptions{runID: blockedID, format: export.FormatJSON},
			want: []string{`"bvid": "BV2"`, `"bvid": "BV3"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			if err := runHistory(context.Background(), dir, tt.opts, &out); err != nil {
				t.Fatalf("runHistory: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out.String(), notWant) {
					t.Errorf("expected output not to contain %q", notWant)
				}
			}
		})
	}
}

func TestRunHistoryDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	id := seedRun(t, dir, "石宇奇", model.StoppedEmpty, model.SearchRecord{VideoID: "BV1"})

	var out bytes.Buffer
	if err := runHistory(context.Background(), dir, historyOptions{deleteID: id}, &out); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted run") {
		t.Errorf("unexpected output %q", out.String())
	}

	err := runHistory(context.Background(), dir, historyOptions{deleteID: id}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	err = runHistory(context.Background(), dir, historyOptions{runID: id, format: export.FormatCSV}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error for deleted run, got %v", err)
	}
}
