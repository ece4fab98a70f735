package dedup

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

const numShards = 32

// Journal persists the dedup state between runs.
type Journal interface {
	// SeenPages returns the last fetch time of every page fetched at or
	// after since, keyed by normalized URL.
	SeenPages(ctx context.Context, since time.Time) (map[string]time.Time, error)

	// RecordFingerprints returns every fingerprint already written.
	RecordFingerprints(ctx context.Context) ([]model.Fingerprint, error)

	// MarkPage records that a page was fetched.
	MarkPage(ctx context.Context, normalizedURL string, fetchedAt time.Time) error
}

type shard struct {
	mu      sync.Mutex
	pages   map[string]time.Time
	records map[model.Fingerprint]struct{}
}

// Store is a sharded, concurrency-safe fingerprint index.
type Store struct {
	shards   [numShards]*shard
	cooldown time.Duration
	journal  Journal
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCooldown sets how long a fetched page counts as seen. Zero or less
// keeps pages seen for the lifetime of the store.
func WithCooldown(d time.Duration) Option {
	return func(s *Store) {
		s.cooldown = d
	}
}

// WithJournal persists page visits.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for journal failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{
			pages:   make(map[string]time.Time),
			records: make(map[model.Fingerprint]struct{}),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Load fills the store from the journal. It is a no-op without a journal.
func (s *Store) Load(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}

	var since time.Time
	if s.cooldown > 0 {
		since = s.now().Add(-s.cooldown)
	}
	pages, err := s.journal.SeenPages(ctx, since)
	if err != nil {
		return fmt.Errorf("load seen pages: %w", err)
	}
	for u, at := range pages {
		sh := s.shardFor(u)
		sh.mu.Lock()
		sh.pages[u] = at
		sh.mu.Unlock()
	}

	fps, err := s.journal.RecordFingerprints(ctx)
	if err != nil {
		return fmt.Errorf("load record fingerprints: %w", err)
	}
	for _, fp := range fps {
		sh := s.shardFor(string(fp))
		sh.mu.Lock()
		sh.records[fp] = struct{}{}
		sh.mu.Unlock()
	}

	s.logger.Debug("dedup store loaded", "pages", len(pages), "records", len(fps))
	return nil
}

// PageSeen reports whether normalizedURL was fetched within the cooldown.
func (s *Store) PageSeen(normalizedURL string) bool {
	sh := s.shardFor(normalizedURL)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	at, ok := sh.pages[normalizedURL]
	if !ok {
		return false
	}
	if s.cooldown <= 0 {
		return true
	}
	if s.now().Sub(at) < s.cooldown {
		return true
	}
	delete(sh.pages, normalizedURL)
	return false
}

// MarkPage records that normalizedURL was fetched now. Journal failures are
// logged; the in-memory mark always succeeds.
func (s *Store) MarkPage(ctx context.Context, normalizedURL string) {
	at := s.now()

	sh := s.shardFor(normalizedURL)
	sh.mu.Lock()
	sh.pages[normalizedURL] = at
	sh.mu.Unlock()

	if s.journal == nil {
		return
	}
	if err := s.journal.MarkPage(ctx, normalizedURL, at); err != nil {
		s.logger.Warn("failed to journal page visit",
			"url", normalizedURL,
			"error", err,
		)
	}
}

// ClaimRecord atomically claims fp. It returns true only for the first
// caller; later claims of the same fingerprint return false.
func (s *Store) ClaimRecord(fp model.Fingerprint) bool {
	sh := s.shardFor(string(fp))
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.records[fp]; ok {
		return false
	}
	sh.records[fp] = struct{}{}
	return true
}

// RecordClaimed reports whether fp was already claimed.
func (s *Store) RecordClaimed(fp model.Fingerprint) bool {
	sh := s.shardFor(string(fp))
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.records[fp]
	return ok
}

// Stats returns the number of tracked pages and claimed records.
func (s *Store) Stats() (pages, records int) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		pages += len(sh.pages)
		records += len(sh.records)
		sh.mu.Unlock()
	}
	return pages, records
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%numShards]
}
