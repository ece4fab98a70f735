package extract

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/k8crawler/internal/model"
)

// FieldExtractor fills some fields of a CandidateRecord from a document.
// Extractors run in order and the first non-empty value of each field wins.
type FieldExtractor interface {
	// Name identifies the extractor in logs and ExtractionErrors.
	Name() string

	// Extract returns a partial record. An error leaves its fields unknown
	// without affecting other extractors.
	Extract(doc *Document) (model.CandidateRecord, error)
}

type funcExtractor struct {
	name string
	fn   func(*Document) (model.CandidateRecord, error)
}

func (f funcExtractor) Name() string { return f.name }

func (f funcExtractor) Extract(doc *Document) (model.CandidateRecord, error) {
	return f.fn(doc)
}

// Func adapts a function to the FieldExtractor interface.
func Func(name string, fn func(*Document) (model.CandidateRecord, error)) FieldExtractor {
	return funcExtractor{name: name, fn: fn}
}

// Result is the output of extracting one fetched page.
type Result struct {
	// Record is nil when the page produced no candidate.
	Record *model.CandidateRecord

	// Links are the discovered frontier entries.
	Links []model.FrontierEntry

	// Errors holds the extractors that failed.
	Errors []*ExtractionError

	// Feed is true when the page was an RSS, Atom or JSON feed.
	Feed bool
}

// Pipeline runs field extractors and link discovery over fetched pages.
// It holds no mutable state after construction and is safe for concurrent use.
type Pipeline struct {
	extractors []FieldExtractor
	links      *LinkExtractor
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for extractor failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithExtractors replaces the default extractors.
func WithExtractors(extractors ...FieldExtractor) Option {
	return func(p *Pipeline) {
		p.extractors = extractors
	}
}

// WithLinkExtractor enables link discovery.
func WithLinkExtractor(l *LinkExtractor) Option {
	return func(p *Pipeline) {
		p.links = l
	}
}

// New creates a Pipeline with DefaultExtractors unless WithExtractors is given.
// Without WithLinkExtractor no links are discovered.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		extractors: DefaultExtractors(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddExtractor appends an extractor. Its values only fill fields that the
// earlier extractors left empty.
func (p *Pipeline) AddExtractor(e FieldExtractor) {
	p.extractors = append(p.extractors, e)
}

// ExtractorCount returns the number of field extractors.
func (p *Pipeline) ExtractorCount() int {
	return len(p.extractors)
}

// ExtractorNames returns the extractor names in run order.
func (p *Pipeline) ExtractorNames() []string {
	names := make([]string, len(p.extractors))
	for i, e := range p.extractors {
		names[i] = e.Name()
	}
	return names
}

// Extract turns a fetch result into at most one candidate record and a set
// of newly discovered links. Non-2xx and non-HTML results yield nothing,
// feeds yield only links.
func (p *Pipeline) Extract(entry model.FrontierEntry, result *model.FetchResult) Result {
	var out Result
	if !result.OK() {
		return out
	}

	if isFeed(result) {
		out.Feed = true
		links, err := p.feedLinks(entry, result.Body)
		if err != nil {
			out.Errors = append(out.Errors, p.failed("feed", entry.URL, err))
			return out
		}
		out.Links = links
		return out
	}

	if !result.IsHTML() {
		return out
	}

	doc, err := NewDocument(entry.URL, result.FinalURL, result.Body)
	if err != nil {
		out.Errors = append(out.Errors, p.failed("document", entry.URL, err))
		return out
	}

	if p.links != nil {
		out.Links = p.links.Links(doc, entry)
	}

	var rec model.CandidateRecord
	for _, e := range p.extractors {
		partial, err := p.run(e, doc)
		if err != nil {
			out.Errors = append(out.Errors, p.failed(e.Name(), entry.URL, err))
			continue
		}
		rec.Fill(partial)
	}

	if rec.Name == "" && rec.Description == "" && !rec.HasAnyAgeOrGrade() {
		return out
	}

	rec.SourceURL = entry.URL
	rec.SourceSite = sourceSite(entry)
	rec.ScrapedAt = result.FetchedAt
	rec.Fingerprint = model.RecordFingerprint(entry.URL, model.ContentHash(result.Body))
	out.Record = &rec
	return out
}

// run calls e, converting a panic into an error.
func (p *Pipeline) run(e FieldExtractor, doc *Document) (partial model.CandidateRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Extract(doc)
}

func (p *Pipeline) failed(name, pageURL string, err error) *ExtractionError {
	xerr := &ExtractionError{Extractor: name, URL: pageURL, Err: err}
	p.logger.Warn("extraction failed",
		"extractor", name,
		"url", pageURL,
		"error", err,
	)
	return xerr
}

// child builds a frontier entry for a feed item link.
func (p *Pipeline) child(parent model.FrontierEntry, rawURL string) (model.FrontierEntry, bool) {
	if p.links != nil {
		return p.links.Child(parent, rawURL)
	}
	return (&LinkExtractor{}).Child(parent, rawURL)
}

// sourceSite is the page the record's URL was discovered on, or the origin
// of the URL itself for seeds.
func sourceSite(entry model.FrontierEntry) string {
	if entry.DiscoveredFrom != "" {
		return entry.DiscoveredFrom
	}
	u, err := url.Parse(entry.URL)
	if err != nil {
		return entry.URL
	}
	return u.Scheme + "://" + u.Host
}
