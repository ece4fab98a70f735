package frontier

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

// SeenIndex reports whether a page was fetched recently enough that it
// should not be queued again.
type SeenIndex interface {
	PageSeen(normalizedURL string) bool
}

// Frontier is a concurrency-safe set of pending URLs, ordered by priority
// and then FIFO within each host.
type Frontier struct {
	mu       sync.Mutex
	hosts    map[string]*hostQueue
	pending  map[string]struct{}
	inFlight map[string]struct{}
	seq      uint64

	seen   SeenIndex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithSeenIndex makes Push reject pages the index reports as seen.
func WithSeenIndex(seen SeenIndex) Option {
	return func(f *Frontier) {
		f.seen = seen
	}
}

// WithClock sets the time source used to stamp EnqueueTime.
func WithClock(now func() time.Time) Option {
	return func(f *Frontier) {
		f.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		f.logger = logger
	}
}

// New creates an empty Frontier.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		hosts:    make(map[string]*hostQueue),
		pending:  make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push adds entry unless its URL is malformed, not http(s), already pending
// or in flight, or reported as seen by the SeenIndex. The URL is stored in
// normalized form. Push reports whether the entry was added.
func (f *Frontier) Push(entry model.FrontierEntry) bool {
	normalized, err := model.NormalizeURL(entry.URL)
	if err != nil {
		f.logger.Debug("frontier rejected url", "url", entry.URL, "error", err)
		return false
	}
	entry.URL = normalized

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queuedLocked(normalized) {
		return false
	}
	if f.seen != nil && f.seen.PageSeen(normalized) {
		return false
	}
	f.enqueueLocked(entry)
	return true
}

// Requeue moves an in-flight entry back to pending without consulting the
// SeenIndex. It is used to retry a URL whose fetch failed transiently.
func (f *Frontier) Requeue(entry model.FrontierEntry) bool {
	normalized, err := model.NormalizeURL(entry.URL)
	if err != nil {
		return false
	}
	entry.URL = normalized

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inFlight, normalized)
	if _, ok := f.pending[normalized]; ok {
		return false
	}
	f.enqueueLocked(entry)
	return true
}

func (f *Frontier) queuedLocked(normalized string) bool {
	if _, ok := f.pending[normalized]; ok {
		return true
	}
	_, ok := f.inFlight[normalized]
	return ok
}

func (f *Frontier) enqueueLocked(entry model.FrontierEntry) {
	if entry.EnqueueTime.IsZero() {
		entry.EnqueueTime = f.now()
	}
	if entry.Priority < 0 {
		entry.Priority = 0
	}

	host := entry.Host()
	q, ok := f.hosts[host]
	if !ok {
		q = &hostQueue{}
		f.hosts[host] = q
	}
	f.seq++
	q.push(item{entry: entry, seq: f.seq})
	f.pending[entry.URL] = struct{}{}
}

// Pop removes and returns the best entry among hosts for which admit
// returns true. Candidates are tried in order of priority and then
// enqueue order; admit is called at most once per host and the first
// admitted candidate is returned, marked in flight. Pop returns false when
// no pending entry is eligible.
//
// admit runs while the frontier lock is held and must not call back into
// the Frontier.
func (f *Frontier) Pop(admit func(host string) bool) (model.FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return model.FrontierEntry{}, false
	}

	type candidate struct {
		host string
		head item
	}
	candidates := make([]candidate, 0, len(f.hosts))
	for host, q := range f.hosts {
		candidates = append(candidates, candidate{host: host, head: q.head()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].head.before(candidates[j].head)
	})

	for _, c := range candidates {
		if admit != nil && !admit(c.host) {
			continue
		}
		q := f.hosts[c.host]
		it := q.pop()
		if q.Len() == 0 {
			delete(f.hosts, c.host)
		}
		delete(f.pending, it.entry.URL)
		f.inFlight[it.entry.URL] = struct{}{}
		return it.entry, true
	}
	return model.FrontierEntry{}, false
}

// Done releases the in-flight mark of url.
func (f *Frontier) Done(url string) {
	normalized, err := model.NormalizeURL(url)
	if err != nil {
		return
	}
	f.mu.Lock()
	delete(f.inFlight, normalized)
	f.mu.Unlock()
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// InFlight returns the number of popped entries not yet marked done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inFlight)
}

// Idle reports whether nothing is pending and nothing is in flight.
func (f *Frontier) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) == 0 && len(f.inFlight) == 0
}

// Hosts returns the number of hosts with pending entries.
func (f *Frontier) Hosts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hosts)
}
