package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/bilicrawl/internal/model"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVWriter writes records as CSV with a header row.
//
// The output starts with a UTF-8 byte order mark so spreadsheet
// applications detect the encoding of the Chinese text. Rows end with
// CRLF.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the header and one row per record.
func (w *CSVWriter) Write(records []model.SearchRecord) (int, error) {
	var buf bytes.Buffer
	enc := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(enc)
	cw.UseCRLF = true
	if err := cw.Write(model.ColumnNames()); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Columns()); err != nil {
			return 0, fmt.Errorf("write csv row %s: %w", r.DedupeKey(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode csv: %w", err)
	}

	return w.output.Write(buf.Bytes())
}
