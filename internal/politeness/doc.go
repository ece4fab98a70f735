// Package politeness decides when a host may be fetched.
//
// The Gate keeps one model.HostPolicy per host: a crawl delay enforced with
// a golang.org/x/time/rate limiter, an in-flight cap and a failure counter
// that puts the host into an exponential cooldown. Host state lives in
// sharded LRU caches, each host guarded by its own mutex, so no lock ever
// spans all hosts.
//
// Robots caches robots.txt rules per host and fails open when a robots file
// cannot be fetched.
package politeness
