package model

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestSearchRecordDedupeKey tests the key priority: bvid, then aid, then url.
func TestSearchRecordDedupeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record SearchRecord
		want   string
	}{
		{
			name:   "video id wins",
			record: SearchRecord{VideoID: "BV1xx", AltID: "123", URL: "https://example.com/a"},
			want:   "BV1xx",
		},
		{
			name:   "alt id when video id is empty",
			record: SearchRecord{AltID: "123", URL: "https://example.com/a"},
			want:   "123",
		},
		{
			name:   "url as last resort",
			record: SearchRecord{URL: "https://example.com/a"},
			want:   "https://example.com/a",
		},
		{
			name:   "no key",
			record: SearchRecord{Title: "orphan"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.record.DedupeKey(); got != tt.want {
				t.Errorf("DedupeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSearchRecordColumns tests the export column order.
func TestSearchRecordColumns(t *testing.T) {
	t.Parallel()

	r := SearchRecord{
		Title:        "决赛 石宇奇",
		VideoID:      "BV1",
		AltID:        "42",
		URL:          "https://www.bilibili.com/video/BV1",
		Author:       "up",
		PublishedAt:  "2024-01-02 03:04:05",
		Duration:     "12:34",
		PlayCount:    "100",
		CommentCount: "7",
		Tags:         []string{"羽毛球", "石宇奇"},
		Description:  "desc",
	}

	cols := r.Columns()
	names := ColumnNames()
	if len(cols) != len(names) {
		t.Fatalf("columns (%d) and names (%d) differ in length", len(cols), len(names))
	}
	if cols[0] != r.Title || cols[1] != r.VideoID || cols[2] != r.AltID {
		t.Errorf("unexpected leading columns: %v", cols[:3])
	}
	if cols[9] != "羽毛球|石宇奇" {
		t.Errorf("expected pipe-joined tags, got %q", cols[9])
	}
	if cols[10] != "desc" {
		t.Errorf("expected description last, got %q", cols[10])
	}
}

// TestSearchRecordFingerprint tests fingerprint stability and sensitivity.
func TestSearchRecordFingerprint(t *testing.T) {
	t.Parallel()

	base := SearchRecord{VideoID: "BV1", Title: "a", PlayCount: "1"}

	t.Run("stable for equal records", func(t *testing.T) {
		t.Parallel()
		if base.Fingerprint() != base.Fingerprint() {
			t.Error("fingerprint is not deterministic")
		}
		if len(base.Fingerprint()) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(base.Fingerprint()))
		}
	})

	t.Run("changes with counters", func(t *testing.T) {
		t.Parallel()
		changed := base
		changed.PlayCount = "2"
		if base.Fingerprint() == changed.Fingerprint() {
			t.Error("expected fingerprint to change with play count")
		}
	})

	t.Run("column boundaries matter", func(t *testing.T) {
		t.Parallel()
		a := SearchRecord{Title: "ab", VideoID: "c"}
		b := SearchRecord{Title: "a", VideoID: "bc"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("expected different fingerprints for shifted columns")
		}
	})
}

// TestRecordSet tests deduplication semantics.
func TestRecordSet(t *testing.T) {
	t.Parallel()

	t.Run("later record with same key wins", func(t *testing.T) {
		t.Parallel()

		s := NewRecordSet()
		s.Add(SearchRecord{VideoID: "BV1", Title: "first"})
		s.Add(SearchRecord{VideoID: "BV2", Title: "other"})
		s.Add(SearchRecord{VideoID: "BV1", Title: "second"})

		if s.Len() != 2 {
			t.Fatalf("expected 2 records, got %d", s.Len())
		}
		got, ok := s.Get("BV1")
		if !ok || got.Title != "second" {
			t.Errorf("expected later record to win, got %+v", got)
		}

		records := s.Records()
		if records[0].VideoID != "BV1" || records[1].VideoID != "BV2" {
			t.Errorf("expected first-insertion order, got %v", records)
		}
	})

	t.Run("records without key are rejected", func(t *testing.T) {
		t.Parallel()

		s := NewRecordSet()
		if s.Add(SearchRecord{Title: "no ids"}) {
			t.Error("expected Add to reject record without dedupe key")
		}
		if s.Len() != 0 {
			t.Errorf("expected empty set, got %d", s.Len())
		}
	})

	t.Run("keys fall back independently", func(t *testing.T) {
		t.Parallel()

		s := NewRecordSet()
		s.Add(SearchRecord{AltID: "1"})
		s.Add(SearchRecord{URL: "https://example.com/1"})
		s.Add(SearchRecord{AltID: "1", Title: "replaced"})

		if s.Len() != 2 {
			t.Errorf("expected 2 distinct keys, got %d", s.Len())
		}
	})

	t.Run("records returns a copy", func(t *testing.T) {
		t.Parallel()

		s := NewRecordSet()
		s.Add(SearchRecord{VideoID: "BV1", Title: "kept"})
		out := s.Records()
		out[0].Title = "mutated"

		got, _ := s.Get("BV1")
		if got.Title != "kept" {
			t.Error("Records() must not expose internal storage")
		}
	})
}

// TestStopReason tests names, terminality and JSON encoding.
func TestStopReason(t *testing.T) {
	t.Parallel()

	reasons := []StopReason{Running, StoppedEmpty, StoppedError, StoppedMaxPages}
	for _, r := range reasons {
		if got := ParseStopReason(r.String()); got != r {
			t.Errorf("ParseStopReason(%q) = %v, want %v", r.String(), got, r)
		}
	}

	if Running.IsTerminal() {
		t.Error("Running must not be terminal")
	}
	if !StoppedEmpty.IsTerminal() || !StoppedError.IsTerminal() || !StoppedMaxPages.IsTerminal() {
		t.Error("stopped states must be terminal")
	}

	data, err := json.Marshal(StoppedMaxPages)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"stopped_max_pages"` {
		t.Errorf("unexpected JSON %s", data)
	}

	var decoded StopReason
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != StoppedMaxPages {
		t.Errorf("expected StoppedMaxPages, got %v", decoded)
	}
}

// TestCrawlResultFinish tests that Finish records the error message.
func TestCrawlResultFinish(t *testing.T) {
	t.Parallel()

	r := NewCrawlResult("石宇奇")
	if r.StopReason != Running {
		t.Fatalf("expected Running, got %v", r.StopReason)
	}

	errBoom := errors.New("boom")
	r.Finish(StoppedError, errBoom)

	if !errors.Is(r.Err, errBoom) {
		t.Errorf("expected error to be kept, got %v", r.Err)
	}
	if r.ErrorMessage != "boom" {
		t.Errorf("expected error message, got %q", r.ErrorMessage)
	}
	if r.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be set")
	}
	if r.Elapsed() < 0 {
		t.Error("elapsed must not be negative")
	}
}
