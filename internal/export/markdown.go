package export

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/bilicrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxCellLen bounds title and author cells in the record table.
const maxCellLen = 60

// MarkdownWriter outputs records as a Markdown document.
type MarkdownWriter struct {
	baseWriter

	// result, when set, adds a crawl summary section.
	result *model.CrawlResult
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithCrawlResult adds the keyword, stop reason and counters of result to
// the document header.
func WithCrawlResult(result *model.CrawlResult) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.result = result
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the document.
func (w *MarkdownWriter) Write(records []model.SearchRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Bilibili Search Results")
	md.PlainText("")

	if w.result != nil {
		w.writeCrawlSummary(md, w.result, len(records))
	}
	w.writeYearChart(md, records)
	w.writeRecords(md, records)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [bilicrawl](https://github.com/nao1215/bilicrawl)*")

	return len(md.String()), md.Build()
}

// writeCrawlSummary writes the property table of one crawl.
func (w *MarkdownWriter) writeCrawlSummary(md *markdown.Markdown, result *model.CrawlResult, kept int) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Keyword", "`" + result.Keyword + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Fetched", strconv.Itoa(result.PagesFetched)},
			{"Items Seen", strconv.Itoa(result.ItemsSeen)},
			{"Records Kept", strconv.Itoa(kept)},
			{"Stopped", result.StopReason.String()},
		},
	})
	md.PlainText("")

	switch result.StopReason {
	case model.StoppedError:
		msg := result.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		md.Warningf("The crawl stopped early (%s). The records below are partial.", escapeCell(msg))
	case model.StoppedMaxPages:
		md.Note("The page limit was reached; more results may be available.")
	}
	md.PlainText("")
}

// writeYearChart writes a pie chart of records per publish year.
func (w *MarkdownWriter) writeYearChart(md *markdown.Markdown, records []model.SearchRecord) {
	counts := map[string]uint64{}
	for _, r := range records {
		year := "unknown"
		if len(r.PublishedAt) >= 4 {
			year = r.PublishedAt[:4]
		}
		counts[year]++
	}
	if len(counts) < 2 {
		return
	}

	years := make([]string, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	slices.SortFunc(years, func(a, b string) int { return cmp.Compare(a, b) })

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records by Publish Year"),
		piechart.WithShowData(true),
	)
	for _, y := range years {
		chart.LabelAndIntValue(y, counts[y])
	}

	md.H2("Publish Years")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRecords writes the record table.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, records []model.SearchRecord) {
	md.H2("Records")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No matching records.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		title := escapeCell(truncate(r.Title, maxCellLen))
		if r.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, r.URL)
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			title,
			escapeCell(truncate(r.Author, maxCellLen)),
			orDash(r.PublishedAt),
			orDash(r.Duration),
			orDash(r.PlayCount),
			orDash(r.CommentCount),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Author", "Published", "Duration", "Play", "Danmaku"},
		Rows:   rows,
	})
	md.PlainText("")
}

// escapeCell keeps a value on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// orDash returns "-" for empty values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most maxLen runes with an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
