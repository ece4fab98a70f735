package model

import (
	"mime"
	"strings"
	"time"
)

// FetchResult is the outcome of retrieving a single URL.
// It is consumed once by the extractor pipeline and never persisted.
type FetchResult struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the last attempt, 0 if no response arrived.
	StatusCode int

	// ContentType is the Content-Type response header.
	ContentType string

	// Body is the decoded response body.
	Body []byte

	// FetchedAt is when the last attempt completed.
	FetchedAt time.Time

	// Attempts is the number of HTTP requests made, including retries.
	Attempts int

	// Err is the terminal error, nil on success.
	Err error
}

// OK reports whether the fetch succeeded with a 2xx status.
func (r *FetchResult) OK() bool {
	return r != nil && r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// MediaType returns the lower-cased media type without parameters.
func (r *FetchResult) MediaType() string {
	if r == nil || r.ContentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(r.ContentType, ";")[0]))
	}
	return mediaType
}

// IsHTML reports whether the body is an HTML document.
// A missing Content-Type is treated as HTML, as many small sites omit it.
func (r *FetchResult) IsHTML() bool {
	switch r.MediaType() {
	case "", "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// IsFeed reports whether the body looks like an RSS or Atom feed.
func (r *FetchResult) IsFeed() bool {
	switch r.MediaType() {
	case "application/rss+xml", "application/atom+xml", "application/feed+json",
		"application/xml", "text/xml":
		return true
	}
	return false
}
