package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// VideoURLPrefix is used to build a record URL when the search result
// only carries a bvid.
const VideoURLPrefix = "https://www.bilibili.com/video/"

// TagSeparator joins tags into a single column in flat exports.
const TagSeparator = "|"

// SearchRecord is one normalized row of a video search result.
//
// Duration, PlayCount and CommentCount are passed through as the API sent
// them; the crawler never interprets them.
type SearchRecord struct {
	// Title is the video title with search highlight markup removed.
	Title string `json:"title"`

	// VideoID is the bvid, the primary external identifier.
	VideoID string `json:"bvid"`

	// AltID is the numeric aid (or id) used when VideoID is missing.
	AltID string `json:"aid"`

	// URL is the video page URL.
	URL string `json:"url"`

	// Author is the uploader name.
	Author string `json:"author"`

	// PublishedAt is the publish time formatted as "2006-01-02 15:04:05"
	// in local time. Empty when the API did not send a usable timestamp.
	PublishedAt string `json:"pubdate"`

	Duration     string `json:"duration"`
	PlayCount    string `json:"play"`
	CommentCount string `json:"danmaku"`

	// Tags are trimmed, non-empty tag strings in API order.
	Tags []string `json:"tags"`

	// Description is the video description with markup removed.
	Description string `json:"desc"`
}

// DedupeKey returns the key used to collapse duplicate records across pages:
// the first non-empty value among VideoID, AltID and URL.
// An empty key means the record cannot be deduplicated and must be dropped.
func (r SearchRecord) DedupeKey() string {
	switch {
	case r.VideoID != "":
		return r.VideoID
	case r.AltID != "":
		return r.AltID
	default:
		return r.URL
	}
}

// JoinedTags returns the tags joined with TagSeparator.
func (r SearchRecord) JoinedTags() string {
	return strings.Join(r.Tags, TagSeparator)
}

// Columns returns the record in export column order.
// See ColumnNames for the matching header.
func (r SearchRecord) Columns() []string {
	return []string{
		r.Title,
		r.VideoID,
		r.AltID,
		r.URL,
		r.Author,
		r.PublishedAt,
		r.Duration,
		r.PlayCount,
		r.CommentCount,
		r.JoinedTags(),
		r.Description,
	}
}

// ColumnNames returns the header row for flat exports.
func ColumnNames() []string {
	return []string{
		"title", "bvid", "aid", "url", "author", "pubdate",
		"duration", "play", "danmaku", "tags", "desc",
	}
}

// Fingerprint returns a SHA3-256 hex digest of the exported columns.
// Two records with the same fingerprint export identically, which lets the
// run history detect rows whose counters or text changed between crawls.
func (r SearchRecord) Fingerprint() string {
	h := sha3.New256()
	for _, col := range r.Columns() {
		// NUL never appears in API text, so it keeps columns from bleeding
		// into each other.
		h.Write([]byte(col))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
