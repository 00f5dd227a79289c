package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/bilicrawl/internal/model"
)

// SummaryWriter prints the outcome of crawls in plain text for the
// terminal.
type SummaryWriter struct {
	baseWriter

	// verbose adds the first records of each crawl.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose lists a few records under each crawl.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// summaryPreview is the number of records listed in verbose mode.
const summaryPreview = 5

// WriteResults prints one block per crawl result.
func (w *SummaryWriter) WriteResults(results []*model.CrawlResult) (int, error) {
	var sb strings.Builder
	for _, r := range results {
		if r == nil {
			continue
		}
		w.writeResult(&sb, r)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SummaryWriter) writeResult(sb *strings.Builder, r *model.CrawlResult) {
	fmt.Fprintf(sb, "keyword: %s\n", r.Keyword)
	fmt.Fprintf(sb, "  status:  %s\n", r.StopReason)
	fmt.Fprintf(sb, "  pages:   %d\n", r.PagesFetched)
	fmt.Fprintf(sb, "  seen:    %d\n", r.ItemsSeen)
	fmt.Fprintf(sb, "  kept:    %d\n", len(r.Records))
	fmt.Fprintf(sb, "  elapsed: %s\n", r.Elapsed().Round(time.Millisecond))
	if r.ErrorMessage != "" {
		fmt.Fprintf(sb, "  error:   %s\n", r.ErrorMessage)
	}

	if w.verbose {
		for i, rec := range r.Records {
			if i == summaryPreview {
				fmt.Fprintf(sb, "    ... and %d more\n", len(r.Records)-summaryPreview)
				break
			}
			fmt.Fprintf(sb, "    %s  %s  %s\n", orDash(rec.PublishedAt), rec.DedupeKey(), rec.Title)
		}
	}
	sb.WriteString("\n")
}
