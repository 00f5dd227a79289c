// Package parser turns decoded search responses into model.SearchRecord
// values.
//
// The API is loose about field names and types, so every field has a
// fallback: author/uname, aid/id, play/playcnt, video_review/dm,
// description/desc. Tags arrive either as a list or as one comma or space
// separated string. Title and description carry highlight markup, which is
// stripped with golang.org/x/net/html.
//
// Nothing in this package returns an error. Malformed input degrades to
// empty fields or an empty result list.
package parser
