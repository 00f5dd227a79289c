package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/bilicrawl/internal/model"
)

// Writer writes a set of records in one output format.
type Writer interface {
	// Write outputs records and returns the number of bytes written.
	Write(records []model.SearchRecord) (int, error)
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Format names an export format.
type Format string

const (
	// FormatCSV is the default spreadsheet export.
	FormatCSV Format = "csv"

	// FormatJSON is a JSON array of records.
	FormatJSON Format = "json"

	// FormatMarkdown is a Markdown document with record tables.
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath guesses the format from the file extension, defaulting
// to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatCSV
	}
}

// NewWriter returns the record writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}
