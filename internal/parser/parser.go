package parser

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/bilicrawl/internal/model"
)

// TimeLayout is the layout of SearchRecord.PublishedAt.
const TimeLayout = "2006-01-02 15:04:05"

// Epoch bounds of years 1 through 9999.
const (
	minEpoch = -62135596800
	maxEpoch = 253402300799
)

// videoResultType is the bucket type holding video results in the
// aggregated search response.
const videoResultType = "video"

// Parse converts a decoded search response body into records.
//
// The result list is looked up at data.result, falling back to
// result.result. It may be a plain list of items or a list of typed buckets
// ({"result_type": "video", "data": [...]}), in which case the video
// buckets are flattened. Anything unexpected yields an empty slice, which
// callers treat as the end of the results.
//
// Parse never fails and is deterministic: the same body always produces the
// same records.
func Parse(body any) []model.SearchRecord {
	items := resultItems(body)
	records := make([]model.SearchRecord, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, parseItem(m))
	}
	return records
}

// resultItems locates the raw result list.
func resultItems(body any) []any {
	root, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	data := firstTruthy(root, "data", "result")
	var results any
	switch d := data.(type) {
	case map[string]any:
		results = d["result"]
	case []any:
		results = d
	default:
		return nil
	}

	list, ok := results.([]any)
	if !ok {
		return nil
	}
	return flattenBuckets(list)
}

// flattenBuckets expands typed buckets and passes plain items through.
func flattenBuckets(list []any) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		resultType, typed := m["result_type"].(string)
		bucket, hasData := m["data"].([]any)
		if !typed || !hasData {
			out = append(out, item)
			continue
		}
		if resultType == videoResultType {
			out = append(out, bucket...)
		}
	}
	return out
}

// parseItem maps one result object to a record.
func parseItem(it map[string]any) model.SearchRecord {
	videoID := toString(firstTruthy(it, "bvid"))

	url := toString(firstTruthy(it, "arcurl"))
	if url == "" && videoID != "" {
		url = model.VideoURLPrefix + videoID
	}

	return model.SearchRecord{
		Title:        cleanField(it["title"]),
		VideoID:      videoID,
		AltID:        toString(firstTruthy(it, "aid", "id")),
		URL:          url,
		Author:       toString(firstTruthy(it, "author", "uname")),
		PublishedAt:  FormatTimestamp(it["pubdate"]),
		Duration:     toString(it["duration"]),
		PlayCount:    toString(valueOr(it, "play", "playcnt")),
		CommentCount: toString(valueOr(it, "video_review", "dm")),
		Tags:         SplitTags(it["tag"]),
		Description:  cleanField(valueOr(it, "description", "desc")),
	}
}

// cleanField strips markup from string values; other types become "".
func cleanField(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return CleanHTML(s)
}

// firstTruthy returns the first value among keys that is not empty, zero
// or null, or nil when none is.
func firstTruthy(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

// valueOr returns m[key] when key is present (even if null), else
// m[fallback].
func valueOr(m map[string]any, key, fallback string) any {
	if v, ok := m[key]; ok {
		return v
	}
	return m[fallback]
}

// truthy reports whether v carries a meaningful value.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// toString renders a passthrough value for export. Numbers keep their JSON
// spelling; null becomes "".
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// FormatTimestamp converts epoch seconds to local time in TimeLayout.
// Only JSON numbers are accepted; missing values, strings and
// out-of-range values yield "".
func FormatTimestamp(v any) string {
	var sec float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return ""
		}
		sec = f
	case float64:
		sec = t
	default:
		return ""
	}

	if math.IsNaN(sec) || sec < minEpoch || sec > maxEpoch {
		return ""
	}
	return time.Unix(int64(sec), 0).Local().Format(TimeLayout)
}

// SplitTags normalizes the tag field. A list keeps its trimmed non-empty
// elements; anything else is rendered as a string and split on commas and
// whitespace.
func SplitTags(v any) []string {
	tags := make([]string, 0)
	switch t := v.(type) {
	case nil:
		return tags
	case []any:
		for _, e := range t {
			if e == nil {
				continue
			}
			if s := strings.TrimSpace(toString(e)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		s := strings.TrimSpace(toString(t))
		return append(tags, strings.FieldsFunc(s, isTagSeparator)...)
	}
}

// isTagSeparator reports whether r separates tags in a string tag field.
func isTagSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}
