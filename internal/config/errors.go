package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// Validate wraps them in a *ValidationError naming the offending key, so
// callers can use both errors.Is and errors.As.
var (
	// ErrNoSeeds is returned when the configuration lists no seed URL.
	ErrNoSeeds = errors.New("no seeds specified")

	// ErrInvalidSeed is returned when a seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidConcurrency is returned when max_concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid max concurrency: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidRetries is returned when max_retries is negative.
	ErrInvalidRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidCrawlDelay is returned when a crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidRelevanceWindow is returned when the age window is empty or negative.
	ErrInvalidRelevanceWindow = errors.New("invalid relevance window: need 0 <= age_min <= age_max")

	// ErrInvalidMaxBodySize is returned when max_body_size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxDepth is returned when max_depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when max_pages is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidFailureThreshold is returned when failure_threshold is not positive.
	ErrInvalidFailureThreshold = errors.New("invalid failure threshold: must be positive")

	// ErrInvalidBackoff is returned when backoff durations are inconsistent.
	ErrInvalidBackoff = errors.New("invalid backoff: need 0 < backoff_base <= max_backoff")

	// ErrInvalidMaxHosts is returned when max_hosts is not positive.
	ErrInvalidMaxHosts = errors.New("invalid max hosts: must be positive")

	// ErrInvalidConcurrentLimit is returned when a per-host concurrent limit is not positive.
	ErrInvalidConcurrentLimit = errors.New("invalid concurrent limit: must be positive")

	// ErrInvalidRequeueLimit is returned when requeue_limit is negative.
	ErrInvalidRequeueLimit = errors.New("invalid requeue limit: must be non-negative")

	// ErrInvalidProxy is returned when the proxy is not a socks5:// or http(s):// URL.
	ErrInvalidProxy = errors.New("invalid proxy: must be a socks5, http or https URL")

	// ErrInvalidPattern is returned when a site ignore or follow pattern is malformed.
	ErrInvalidPattern = errors.New("invalid URL pattern")

	// ErrNoOutput is returned when neither a database directory nor a JSONL file is set.
	ErrNoOutput = errors.New("no output configured: set output.db_dir or output.jsonl")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrUnsupportedFormat is returned for configuration files that are neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported configuration format: use .yaml, .yml or .toml")
)

// ValidationError reports which configuration key failed validation.
type ValidationError struct {
	// Field is the configuration key, e.g. "max_concurrency" or "sites.example.org.crawl_delay".
	Field string
	// Err is one of the package sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
