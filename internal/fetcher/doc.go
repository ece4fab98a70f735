// Package fetcher retrieves pages over HTTP.
//
// A Fetcher performs one GET per attempt with a per-attempt timeout and
// retries transient failures (connection errors, timeouts, 5xx and 429)
// with a linear backoff. Permanent failures (other 4xx, malformed or
// non-HTTP URLs, certificate errors) are returned at once. Every failure is
// a *Error whose chain contains ErrTransient, ErrPermanent or the context
// error that aborted the fetch.
//
// The fetcher is pure I/O: it knows nothing about politeness or robots.txt.
package fetcher
