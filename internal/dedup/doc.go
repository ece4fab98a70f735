// Package dedup tracks which pages have been fetched and which records have
// been emitted during a crawl.
//
// Pages are keyed by normalized URL and may be fetched again once a cooldown
// has elapsed. Record fingerprints are claimed at most once; a claimed
// fingerprint is never handed to a sink again. The index is split into
// shards, each with its own lock, so unrelated URLs never contend.
//
// A Journal persists page visits across runs. Records are not journaled
// here: the database sink already stores every written fingerprint and
// Load reads them back.
package dedup
