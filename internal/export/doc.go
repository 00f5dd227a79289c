// Package export writes crawl records to files and terminals.
//
// Record writers share the Writer interface and the fixed column order
// defined by model.ColumnNames:
//   - CSVWriter: UTF-8 CSV with a byte order mark, for spreadsheets
//   - JSONWriter: JSON array using the column names as keys
//   - MarkdownWriter: summary and record tables for sharing
//
// SummaryWriter prints the per-keyword outcome of a crawl for the
// terminal. WriteFile picks a record writer from a Format and writes the
// records to disk.
package export
