package model

import "time"

// FrontierEntry is a discovered URL waiting to be crawled.
type FrontierEntry struct {
	// URL is the normalized URL to fetch.
	URL string `json:"url"`

	// DiscoveredFrom is the URL of the page that linked here.
	// Empty for seeds.
	DiscoveredFrom string `json:"discovered_from,omitempty"`

	// Priority orders entries; higher values are crawled first.
	Priority int `json:"priority"`

	// EnqueueTime is when the entry entered the frontier.
	EnqueueTime time.Time `json:"enqueue_time"`

	// AttemptCount is the number of times the orchestrator dispatched this URL.
	AttemptCount int `json:"attempt_count"`

	// Depth is the number of link hops from the seed.
	Depth int `json:"depth"`
}

// Seed is a configured starting point of a crawl.
type Seed struct {
	URL      string `yaml:"url" toml:"url" json:"url"`
	Priority int    `yaml:"priority" toml:"priority" json:"priority"`
}

// Host returns the host of the entry URL.
func (e FrontierEntry) Host() string {
	return HostOf(e.URL)
}
