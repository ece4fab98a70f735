package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/k8crawler/internal/model"
)

// LinkExtractor discovers frontier entries in a document.
type LinkExtractor struct {
	keywords  []string
	maxDepth  func(host string) int
	patterns  func(host string) (ignore, follow []string)
	seedHosts map[string]bool
}

// LinkOption configures a LinkExtractor.
type LinkOption func(*LinkExtractor)

// WithMaxDepth sets the per-host maximum link depth. Without it depth is
// unlimited.
func WithMaxDepth(fn func(host string) int) LinkOption {
	return func(l *LinkExtractor) {
		l.maxDepth = fn
	}
}

// WithPatterns sets the per-host ignore and follow path globs.
func WithPatterns(fn func(host string) (ignore, follow []string)) LinkOption {
	return func(l *LinkExtractor) {
		l.patterns = fn
	}
}

// WithSeedHosts restricts discovered links to the given hosts. A "www."
// prefix is ignored on both sides.
func WithSeedHosts(hosts []string) LinkOption {
	return func(l *LinkExtractor) {
		l.seedHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			l.seedHosts[bareHost(h)] = true
		}
	}
}

// NewLinkExtractor creates a LinkExtractor that follows anchors whose URL
// or anchor text contains one of keywords. No keywords follows every anchor.
func NewLinkExtractor(keywords []string, opts ...LinkOption) *LinkExtractor {
	l := &LinkExtractor{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			l.keywords = append(l.keywords, k)
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Links returns entries for the relevant anchors and feed links of doc.
// Each entry has DiscoveredFrom set to parent.URL, priority parent-1
// (never below zero) and depth parent+1.
func (l *LinkExtractor) Links(doc *Document, parent model.FrontierEntry) []model.FrontierEntry {
	seen := make(map[string]bool)
	var out []model.FrontierEntry

	add := func(rawURL string) {
		entry, ok := l.Child(parent, rawURL)
		if !ok || seen[entry.URL] || entry.URL == parent.URL {
			return
		}
		seen[entry.URL] = true
		out = append(out, entry)
	}

	doc.DOM.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		target := doc.Resolve(s.AttrOr("href", ""))
		if target == "" {
			return
		}
		if !l.relevant(target, collapseSpace(s.Text())) {
			return
		}
		add(target)
	})

	doc.DOM.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		switch strings.ToLower(s.AttrOr("type", "")) {
		case "application/rss+xml", "application/atom+xml", "application/feed+json":
			if target := doc.Resolve(s.AttrOr("href", "")); target != "" {
				add(target)
			}
		}
	})
	return out
}

// relevant reports whether a link URL or its anchor text mentions a keyword.
func (l *LinkExtractor) relevant(target, anchorText string) bool {
	if len(l.keywords) == 0 {
		return true
	}
	lowerURL := strings.ToLower(target)
	lowerText := strings.ToLower(anchorText)
	for _, k := range l.keywords {
		if strings.Contains(lowerURL, k) || strings.Contains(lowerText, k) {
			return true
		}
	}
	return false
}

// Child builds the entry for a link found on parent, applying URL
// normalization, the depth limit, the seed host restriction and the host
// patterns. It reports false when the link must not be followed.
func (l *LinkExtractor) Child(parent model.FrontierEntry, rawURL string) (model.FrontierEntry, bool) {
	normalized, err := model.NormalizeURL(rawURL)
	if err != nil {
		return model.FrontierEntry{}, false
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return model.FrontierEntry{}, false
	}

	if l.seedHosts != nil && !l.seedHosts[bareHost(u.Host)] {
		return model.FrontierEntry{}, false
	}

	depth := parent.Depth + 1
	if l.maxDepth != nil && depth > l.maxDepth(u.Host) {
		return model.FrontierEntry{}, false
	}

	if l.patterns != nil {
		ignore, follow := l.patterns(u.Host)
		if !shouldFollow(u.Path, ignore, follow) {
			return model.FrontierEntry{}, false
		}
	}

	return model.FrontierEntry{
		URL:            normalized,
		DiscoveredFrom: parent.URL,
		Priority:       max(parent.Priority-1, 0),
		Depth:          depth,
	}, true
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
