// Package database stores crawl history in SQLite.
//
// Each crawl is saved as a run (keyword, timestamps, stop reason and
// counters) together with the records it produced. Two runs for the same
// keyword can be compared with CompareRuns to see which videos appeared,
// disappeared or changed between them.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database is a
// single file, bilicrawl.db, opened in WAL mode with one connection.
package database
