package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/bilicrawl/internal/model"
)

// File permissions for exported files.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// WriteFile writes records to path in format, creating parent directories
// as needed. The file is replaced only after the whole document has been
// rendered.
func WriteFile(path string, format Format, records []model.SearchRecord, opts ...MarkdownWriterOption) error {
	var buf bytes.Buffer

	var w Writer
	if format == FormatMarkdown {
		w = NewMarkdownWriter(&buf, opts...)
	} else {
		var err error
		w, err = NewWriter(format, &buf)
		if err != nil {
			return err
		}
	}
	if _, err := w.Write(records); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
