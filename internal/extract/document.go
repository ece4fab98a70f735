package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page handed to every FieldExtractor.
type Document struct {
	// URL is the normalized URL the page was requested as.
	URL string
	// BaseURL resolves relative links; it is the final URL after redirects.
	BaseURL *url.URL
	// DOM is the goquery selection root.
	DOM *goquery.Document
	// Text is the visible text with whitespace collapsed.
	Text string

	lower string
}

// NewDocument parses body as HTML. finalURL may be empty, in which case
// pageURL is the base for relative links.
func NewDocument(pageURL, finalURL string, body []byte) (*Document, error) {
	base := finalURL
	if base == "" {
		base = pageURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	text := visibleText(root)
	return &Document{
		URL:     pageURL,
		BaseURL: baseURL,
		DOM:     goquery.NewDocumentFromNode(root),
		Text:    text,
		lower:   strings.ToLower(text),
	}, nil
}

// LowerText returns Text in lower case.
func (d *Document) LowerText() string {
	return d.lower
}

// First returns the trimmed text of the first element matching any of the
// selectors, tried in order, whose text satisfies accept. A nil accept
// takes any non-empty text.
func (d *Document) First(selectors []string, accept func(string) bool) string {
	for _, sel := range selectors {
		var found string
		d.DOM.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapseSpace(s.Text())
			if text == "" || (accept != nil && !accept(text)) {
				return true
			}
			found = text
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// Meta returns the content of the first meta tag whose name or property
// equals one of keys.
func (d *Document) Meta(keys ...string) string {
	for _, key := range keys {
		sel := `meta[name="` + key + `"], meta[property="` + key + `"]`
		if content, ok := d.DOM.Find(sel).First().Attr("content"); ok {
			if content = collapseSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

// Resolve resolves href against the document base. It returns "" for
// empty, fragment-only and non-navigational links.
func (d *Document) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "sms:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return d.BaseURL.ResolveReference(u).String()
}

// skippedText lists elements whose text is never visible.
var skippedText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// visibleText collects the text nodes of the document, skipping scripts and
// styles. The title is kept.
func visibleText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedText[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return collapseSpace(b.String())
}

// collapseSpace trims s and replaces whitespace runs with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
