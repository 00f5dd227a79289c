package parser

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

// decode decodes body the same way the search package does.
func decode(t *testing.T, body string) any {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// TestParse tests result list lookup and field mapping.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("maps a full item", func(t *testing.T) {
		t.Parallel()

		body := decode(t, `{"code":0,"data":{"result":[{
			"title":"<em class=\"keyword\">石宇奇</em> 决赛 &amp; 集锦",
			"author":"羽球频道",
			"bvid":"BV1ab411c7de",
			"aid":170001,
			"arcurl":"http://www.bilibili.com/video/av170001",
			"pubdate":1700000000,
			"duration":"12:34",
			"play":98765,
			"video_review":321,
			"tag":"羽毛球,石宇奇 比赛",
			"description":"  全场录像&lt;高清&gt;  "
		}]}}`)

		records := Parse(body)
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		r := records[0]

		if r.Title != "石宇奇 决赛 & 集锦" {
			t.Errorf("unexpected title %q", r.Title)
		}
		if r.Author != "羽球频道" {
			t.Errorf("unexpected author %q", r.Author)
		}
		if r.VideoID != "BV1ab411c7de" || r.AltID != "170001" {
			t.Errorf("unexpected ids %q %q", r.VideoID, r.AltID)
		}
		if r.URL != "http://www.bilibili.com/video/av170001" {
			t.Errorf("unexpected url %q", r.URL)
		}
		wantTime := time.Unix(1700000000, 0).Local().Format(TimeLayout)
		if r.PublishedAt != wantTime {
			t.Errorf("unexpected pubdate %q, want %q", r.PublishedAt, wantTime)
		}
		if r.Duration != "12:34" || r.PlayCount != "98765" || r.CommentCount != "321" {
			t.Errorf("unexpected passthrough fields %q %q %q", r.Duration, r.PlayCount, r.CommentCount)
		}
		if !reflect.DeepEqual(r.Tags, []string{"羽毛球", "石宇奇", "比赛"}) {
			t.Errorf("unexpected tags %v", r.Tags)
		}
		if r.Description != "全场录像<高清>" {
			t.Errorf("unexpected description %q", r.Description)
		}
	})

	t.Run("fallback field names", func(t *testing.T) {
		t.Parallel()

		body := decode(t, `{"data":{"result":[{
			"title":"t",
			"uname":"fallback author",
			"bvid":"BV9",
			"aid":0,
			"id":55,
			"playcnt":"1.2万",
			"dm":8,
			"desc":"short desc",
			"tag":["a"," b ","",3]
		}]}}`)

		r := Parse(body)[0]
		if r.Author != "fallback author" {
			t.Errorf("expected uname fallback, got %q", r.Author)
		}
		if r.AltID != "55" {
			t.Errorf("expected id fallback when aid is zero, got %q", r.AltID)
		}
		if r.URL != "https://www.bilibili.com/video/BV9" {
			t.Errorf("expected synthesized url, got %q", r.URL)
		}
		if r.PlayCount != "1.2万" || r.CommentCount != "8" {
			t.Errorf("unexpected counters %q %q", r.PlayCount, r.CommentCount)
		}
		if r.Description != "short desc" {
			t.Errorf("expected desc fallback, got %q", r.Description)
		}
		if !reflect.DeepEqual(r.Tags, []string{"a", "b", "3"}) {
			t.Errorf("unexpected tags %v", r.Tags)
		}
	})

	t.Run("present key wins over fallback even when null", func(t *testing.T) {
		t.Parallel()

		body := decode(t, `{"data":{"result":[{"play":null,"playcnt":5,"description":"","desc":"ignored"}]}}`)
		r := Parse(body)[0]
		if r.PlayCount != "" {
			t.Errorf("expected empty play count, got %q", r.PlayCount)
		}
		if r.Description != "" {
			t.Errorf("expected empty description, got %q", r.Description)
		}
	})

	t.Run("missing fields degrade to defaults", func(t *testing.T) {
		t.Parallel()

		r := Parse(decode(t, `{"data":{"result":[{}]}}`))[0]
		if r.Title != "" || r.Author != "" || r.VideoID != "" || r.AltID != "" || r.URL != "" {
			t.Errorf("expected empty strings, got %+v", r)
		}
		if r.PublishedAt != "" {
			t.Errorf("expected empty pubdate, got %q", r.PublishedAt)
		}
		if r.Tags == nil || len(r.Tags) != 0 {
			t.Errorf("expected empty non-nil tags, got %#v", r.Tags)
		}
	})

	t.Run("result.result path", func(t *testing.T) {
		t.Parallel()

		records := Parse(decode(t, `{"result":{"result":[{"bvid":"BV1"},{"bvid":"BV2"}]}}`))
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
	})

	t.Run("data as direct list", func(t *testing.T) {
		t.Parallel()

		records := Parse(decode(t, `{"data":[{"bvid":"BV1"}]}`))
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("typed buckets keep only video results", func(t *testing.T) {
		t.Parallel()

		records := Parse(decode(t, `{"data":{"result":[
			{"result_type":"bili_user","data":[{"uname":"someone"}]},
			{"result_type":"video","data":[{"bvid":"BV1"},{"bvid":"BV2"}]},
			{"result_type":"video","data":[{"bvid":"BV3"}]}
		]}}`))
		if len(records) != 3 {
			t.Fatalf("expected 3 video records, got %d", len(records))
		}
		if records[2].VideoID != "BV3" {
			t.Errorf("unexpected order: %v", records)
		}
	})

	t.Run("non-object items are skipped", func(t *testing.T) {
		t.Parallel()

		records := Parse(decode(t, `{"data":{"result":[1,"x",null,{"bvid":"BV1"}]}}`))
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
	})
}

// TestParseMalformed tests that unexpected shapes yield no records.
func TestParseMalformed(t *testing.T) {
	t.Parallel()

	bodies := map[string]any{
		"nil body":         nil,
		"list body":        []any{1, 2},
		"string body":      "oops",
		"no data":          map[string]any{"code": json.Number("0")},
		"null data":        map[string]any{"data": nil},
		"empty data":       map[string]any{"data": map[string]any{}},
		"result not list":  map[string]any{"data": map[string]any{"result": "nope"}},
		"result is number": map[string]any{"data": map[string]any{"result": json.Number("3")}},
		"data is number":   map[string]any{"data": json.Number("1")},
		"empty result":     map[string]any{"data": map[string]any{"result": []any{}}},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			records := Parse(body)
			if records == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(records) != 0 {
				t.Errorf("expected no records, got %d", len(records))
			}
		})
	}
}

// TestParseIdempotent tests that parsing the same body twice is stable.
func TestParseIdempotent(t *testing.T) {
	t.Parallel()

	body := decode(t, `{"data":{"result":[
		{"title":"<em>石宇奇</em>","bvid":"BV1","tag":"a,b","pubdate":1600000000},
		{"title":"other","aid":2,"tag":["x"]}
	]}}`)

	first := Parse(body)
	second := Parse(body)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parse is not idempotent:\n%v\n%v", first, second)
	}
}

// TestCleanHTML tests tag stripping and entity unescaping.
func TestCleanHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "  padded  ", want: "padded"},
		{in: `<em class="keyword">石宇奇</em>vs安赛龙`, want: "石宇奇vs安赛龙"},
		{in: "a &amp; b &quot;c&quot;", want: `a & b "c"`},
		{in: "&lt;not a tag&gt;", want: "<not a tag>"},
		{in: "<b>bold</b> <i>it</i>", want: "bold it"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := CleanHTML(tt.in); got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSplitTags tests tag normalization.
func TestSplitTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "empty string", in: "   ", want: []string{}},
		{name: "commas and spaces", in: "a, b,,c  d", want: []string{"a", "b", "c", "d"}},
		{name: "ideographic space", in: "羽毛球　石宇奇", want: []string{"羽毛球", "石宇奇"}},
		{name: "list", in: []any{" a ", "", nil, json.Number("7")}, want: []string{"a", "7"}},
		{name: "number", in: json.Number("42"), want: []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SplitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitTags(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

// TestFormatTimestamp tests epoch conversion.
func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Unix(1600000000, 0).Local().Format(TimeLayout)
	if got := FormatTimestamp(json.Number("1600000000")); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatTimestamp(float64(1600000000)); got != want {
		t.Errorf("float: got %q, want %q", got, want)
	}

	for _, bad := range []any{nil, "", "soon", "1600000000", json.Number("abc"), json.Number("1e300"), true} {
		if got := FormatTimestamp(bad); got != "" {
			t.Errorf("FormatTimestamp(%v) = %q, want empty", bad, got)
		}
	}
}
