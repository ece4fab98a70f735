// Package crawler drives a crawl run.
//
// # Architecture
//
// The Orchestrator connects the crawl components:
//
//	Frontier -> Gate -> Robots -> Fetcher -> Pipeline -> Filter -> Dedup -> Sink
//
// A single dispatcher goroutine pops entries from the frontier, letting the
// politeness gate admit hosts, and hands them to a bounded errgroup pool.
// Workers fetch, extract, enqueue discovered links, filter and write
// records. A failure while processing one URL never reaches the pool, so
// it cannot cancel work on other URLs.
//
// # States
//
//	Idle -> Running -> Draining -> Stopped
//	Idle -> Failed
//
// A run that cannot start, because the sink does not answer its ping or
// the dedup journal cannot be read, goes straight to Failed and never
// dispatches. Running ends when the frontier is empty with nothing in
// flight, when Stop is called, when max_pages is reached or when the
// context is cancelled. Draining waits for in-flight work and retries failed sink
// writes once; records that still fail go to the dead-letter queue.
//
// Stop is graceful: dispatch halts and in-flight fetches run to completion
// or time out. Cancelling the context passed to Run aborts in-flight
// fetches. Sink writes never observe cancellation, so a record is either
// written whole or not at all.
package crawler
