package extract

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/nao1215/k8crawler/internal/model"
)

// isFeed reports whether the result holds an RSS, Atom or JSON feed.
func isFeed(result *model.FetchResult) bool {
	if result.IsFeed() {
		return true
	}
	return gofeed.DetectFeedType(bytes.NewReader(result.Body)) != gofeed.FeedTypeUnknown
}

// feedLinks returns one entry per feed item link.
func (p *Pipeline) feedLinks(parent model.FrontierEntry, body []byte) ([]model.FrontierEntry, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	seen := make(map[string]bool, len(feed.Items))
	var out []model.FrontierEntry
	for _, item := range feed.Items {
		links := item.Links
		if item.Link != "" {
			links = append([]string{item.Link}, links...)
		}
		for _, link := range links {
			entry, ok := p.child(parent, link)
			if !ok || seen[entry.URL] {
				continue
			}
			seen[entry.URL] = true
			out = append(out, entry)
			break
		}
	}
	return out, nil
}
