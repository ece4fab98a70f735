// Package frontier holds the URLs waiting to be crawled.
//
// Entries are kept in one priority queue per host. Pop picks the best head
// among the hosts the caller admits, so politeness decisions and dequeuing
// happen in one step. A normalized URL is pending or in flight at most once.
package frontier
