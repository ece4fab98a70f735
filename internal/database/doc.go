// Package database provides SQLite storage for k8crawler.
//
// A CrawlDB keeps:
//   - accepted records, keyed by fingerprint so repeated writes are upserts
//   - fetched pages, so later runs can skip pages inside the recrawl cooldown
//   - dead letters for records that could not be written
//   - the history of crawl runs and their statistics
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
