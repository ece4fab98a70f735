package model

import "time"

// HostPolicy is the politeness state kept for one host.
type HostPolicy struct {
	// Host is the lower-cased host, including a non-default port.
	Host string `json:"host"`

	// CrawlDelay is the minimum time between two fetch starts.
	CrawlDelay time.Duration `json:"crawl_delay"`

	// ConcurrentLimit is the maximum number of in-flight requests.
	ConcurrentLimit int `json:"concurrent_limit"`

	// LastFetchTime is when the last fetch was admitted.
	LastFetchTime time.Time `json:"last_fetch_time"`

	// ConsecutiveFailures counts failed fetches since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// InFlight is the number of admitted fetches not yet recorded.
	InFlight int `json:"in_flight"`

	// CooldownUntil is set while the host is backing off after failures.
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
}
