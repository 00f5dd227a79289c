// Package model defines the data structures shared by the crawler, the
// exporters and the run history.
//
//   - SearchRecord: one normalized video search result
//   - RecordSet: the deduplicating accumulator owned by a single crawl
//   - CrawlResult: the outcome of one crawl invocation
//
// Keeping these types in one package lets crawler, export and database
// depend on them without importing each other.
package model
