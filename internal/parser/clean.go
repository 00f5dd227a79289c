package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanHTML removes markup from API text fields and unescapes entities.
// Search results wrap matched words in <em class="keyword"> and encode
// punctuation as entities; only the text content is kept.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is kept.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
