package crawler

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/nao1215/k8crawler/internal/model"
)

// stats are the live counters of a run.
type stats struct {
	dispatched   atomic.Int64
	fetched      atomic.Int64
	fetchFailed  atomic.Int64
	robotsDenied atomic.Int64
	requeued     atomic.Int64
	links        atomic.Int64
	feeds        atomic.Int64
	extracted    atomic.Int64
	accepted     atomic.Int64
	rejected     atomic.Int64
	duplicates   atomic.Int64
	written      atomic.Int64
	sinkRetried  atomic.Int64
	deadLettered atomic.Int64

	mu         sync.Mutex
	categories map[model.Category]int64
}

func (s *stats) wrote(c model.Category) {
	s.written.Add(1)
	s.mu.Lock()
	if s.categories == nil {
		s.categories = make(map[model.Category]int64)
	}
	s.categories[c]++
	s.mu.Unlock()
}

func (s *stats) snapshot() model.RunStats {
	s.mu.Lock()
	categories := maps.Clone(s.categories)
	s.mu.Unlock()

	return model.RunStats{
		Dispatched:   s.dispatched.Load(),
		Fetched:      s.fetched.Load(),
		FetchFailed:  s.fetchFailed.Load(),
		RobotsDenied: s.robotsDenied.Load(),
		Requeued:     s.requeued.Load(),
		Links:        s.links.Load(),
		Feeds:        s.feeds.Load(),
		Extracted:    s.extracted.Load(),
		Accepted:     s.accepted.Load(),
		Rejected:     s.rejected.Load(),
		Duplicates:   s.duplicates.Load(),
		Written:      s.written.Load(),
		SinkRetried:  s.sinkRetried.Load(),
		DeadLettered: s.deadLettered.Load(),
		Categories:   categories,
	}
}
