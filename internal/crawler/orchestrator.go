package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/k8crawler/internal/dedup"
	"github.com/nao1215/k8crawler/internal/extract"
	"github.com/nao1215/k8crawler/internal/fetcher"
	"github.com/nao1215/k8crawler/internal/frontier"
	"github.com/nao1215/k8crawler/internal/model"
	"github.com/nao1215/k8crawler/internal/politeness"
	"github.com/nao1215/k8crawler/internal/relevance"
	"github.com/nao1215/k8crawler/internal/sink"
)

// Default orchestrator settings.
const (
	DefaultConcurrency  = 8
	DefaultRequeueLimit = 1
	DefaultPollInterval = 50 * time.Millisecond
	DefaultSinkTimeout  = 30 * time.Second
)

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.FetchResult
}

// RobotsChecker reports whether a URL may be fetched and the crawl delay
// its host asks for.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) (bool, time.Duration)
}

// RunStore persists run summaries.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.RunSummary) error
}

// Orchestrator runs one crawl. It is single use: Run may be called once.
type Orchestrator struct {
	frontier    *frontier.Frontier
	gate        *politeness.Gate
	robots      RobotsChecker
	fetcher     Fetcher
	pipeline    *extract.Pipeline
	dedup       *dedup.Store
	filter      *relevance.Filter
	sink        sink.Sink
	deadLetters sink.DeadLetterQueue
	runs        RunStore

	seeds        []model.Seed
	concurrency  int
	requeueLimit int
	maxPages     int
	pollInterval time.Duration
	sinkTimeout  time.Duration
	runID        string
	configPath   string

	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	started  bool
	state    model.RunState
	stopCh   chan struct{}
	stopOnce sync.Once
	wake     chan struct{}

	retryMu sync.Mutex
	retries []sinkRetry

	stats stats
}

// sinkRetry is a record whose first write failed.
type sinkRetry struct {
	record *model.CandidateRecord
	err    error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFrontier sets the frontier. It should consult the same dedup store.
func WithFrontier(f *frontier.Frontier) Option {
	return func(o *Orchestrator) { o.frontier = f }
}

// WithGate sets the politeness gate.
func WithGate(g *politeness.Gate) Option {
	return func(o *Orchestrator) { o.gate = g }
}

// WithRobots enables robots.txt checks.
func WithRobots(r RobotsChecker) Option {
	return func(o *Orchestrator) { o.robots = r }
}

// WithFetcher sets the fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) { o.fetcher = f }
}

// WithPipeline sets the extractor pipeline.
func WithPipeline(p *extract.Pipeline) Option {
	return func(o *Orchestrator) { o.pipeline = p }
}

// WithDedup sets the dedup store.
func WithDedup(s *dedup.Store) Option {
	return func(o *Orchestrator) { o.dedup = s }
}

// WithFilter sets the relevance filter.
func WithFilter(f *relevance.Filter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithSink sets the record sink. It is required.
func WithSink(s sink.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithDeadLetters sets where unwritable records go. Without it they are
// only logged.
func WithDeadLetters(q sink.DeadLetterQueue) Option {
	return func(o *Orchestrator) { o.deadLetters = q }
}

// WithRunStore persists the run summary at start and end.
func WithRunStore(r RunStore) Option {
	return func(o *Orchestrator) { o.runs = r }
}

// WithSeeds sets the starting URLs.
func WithSeeds(seeds ...model.Seed) Option {
	return func(o *Orchestrator) { o.seeds = append(o.seeds, seeds...) }
}

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRequeueLimit sets how many times a URL whose fetch failed
// transiently is put back into the frontier.
func WithRequeueLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.requeueLimit = n
		}
	}
}

// WithMaxPages stops dispatching after n pages. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(o *Orchestrator) { o.maxPages = n }
}

// WithPollInterval sets how long the dispatcher waits when no host is
// eligible.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithSinkTimeout bounds a single sink write.
func WithSinkTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sinkTimeout = d
		}
	}
}

// WithRunID sets the run id. A random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// WithConfigPath records the configuration file in the run summary.
func WithConfigPath(path string) Option {
	return func(o *Orchestrator) { o.configPath = path }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock sets the time source of the run summary.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. Components that are not given get their
// defaults; the sink is required and checked by Run.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		concurrency:  DefaultConcurrency,
		requeueLimit: DefaultRequeueLimit,
		pollInterval: DefaultPollInterval,
		sinkTimeout:  DefaultSinkTimeout,
		now:          time.Now,
		state:        model.StateIdle,
		stopCh:       make(chan struct{}),
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	o.logger = o.logger.With("run_id", o.runID)

	if o.dedup == nil {
		o.dedup = dedup.New(dedup.WithLogger(o.logger))
	}
	if o.frontier == nil {
		o.frontier = frontier.New(frontier.WithSeenIndex(o.dedup), frontier.WithLogger(o.logger))
	}
	if o.gate == nil {
		o.gate = politeness.NewGate(politeness.WithLogger(o.logger))
	}
	if o.fetcher == nil {
		o.fetcher = fetcher.New(fetcher.WithLogger(o.logger))
	}
	if o.pipeline == nil {
		o.pipeline = extract.New(extract.WithLogger(o.logger))
	}
	if o.filter == nil {
		o.filter = relevance.Default()
	}
	return o
}

// RunID returns the id of the run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// State returns the current state.
func (o *Orchestrator) State() model.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s model.RunState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("crawl state changed", "from", prev, "to", s)
}

// Stats returns a snapshot of the run counters.
func (o *Orchestrator) Stats() model.RunStats {
	return o.stats.snapshot()
}

// Stop halts dispatching. In-flight work finishes and Run returns once it
// has drained. Stop may be called more than once and from any goroutine.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.logger.Info("stop requested")
		close(o.stopCh)
	})
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

// Run executes the crawl and returns its summary. The returned error is
// non-nil only when the run failed to start; the summary state is then
// Failed. Per-URL failures are counted in the summary, never returned.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunSummary, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	summary := &model.RunSummary{
		ID:         o.runID,
		State:      model.StateIdle,
		ConfigPath: o.configPath,
		Seeds:      len(o.seeds),
		StartedAt:  o.now(),
	}

	if err := o.start(ctx); err != nil {
		o.setState(model.StateFailed)
		o.logger.Error("crawl failed to start", "error", err)
		summary.State = model.StateFailed
		summary.Error = err.Error()
		o.finish(summary)
		return summary, err
	}
	o.setState(model.StateRunning)
	summary.State = model.StateRunning
	o.saveRun(summary)

	o.logger.Info("crawl started",
		"seeds", len(o.seeds),
		"concurrency", o.concurrency,
	)

	o.dispatch(ctx)

	o.setState(model.StateDraining)
	o.flushRetries(ctx)

	summary.State = model.StateStopped
	o.finish(summary)

	st := summary.Stats
	o.logger.Info("crawl finished",
		"duration", summary.Duration(),
		"fetched", st.Fetched,
		"failed", st.FetchFailed,
		"written", st.Written,
		"duplicates", st.Duplicates,
		"rejected", st.Rejected,
		"dead_lettered", st.DeadLettered,
	)
	return summary, nil
}

// start checks the sink, loads the dedup journal and enqueues the seeds.
func (o *Orchestrator) start(ctx context.Context) error {
	if o.sink == nil {
		return ErrNoSink
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.sinkTimeout)
	defer cancel()
	if err := o.sink.Ping(pingCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}

	if err := o.dedup.Load(ctx); err != nil {
		return err
	}

	if len(o.seeds) == 0 {
		return ErrNoSeeds
	}
	for _, seed := range o.seeds {
		if !o.frontier.Push(model.FrontierEntry{URL: seed.URL, Priority: seed.Priority}) {
			o.logger.Info("seed skipped, duplicate or within the recrawl cooldown", "url", seed.URL)
		}
	}
	return nil
}

// finish stamps the summary and persists it.
func (o *Orchestrator) finish(summary *model.RunSummary) {
	summary.FinishedAt = o.now()
	summary.Stats = o.stats.snapshot()
	if summary.State == model.StateStopped {
		o.setState(model.StateStopped)
	}
	o.saveRun(summary)
}

func (o *Orchestrator) saveRun(summary *model.RunSummary) {
	if o.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.sinkTimeout)
	defer cancel()
	if err := o.runs.SaveRun(ctx, summary); err != nil {
		o.logger.Warn("failed to save run summary", "error", err)
	}
}

// dispatch pops entries and hands them to the worker pool until the
// frontier drains, Stop is called, max_pages is reached or ctx is done.
// It returns after every worker has finished.
func (o *Orchestrator) dispatch(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	slots := make(chan struct{}, o.concurrency)
	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()

	for {
		if o.maxPages > 0 && o.stats.dispatched.Load() >= int64(o.maxPages) {
			o.logger.Info("max pages reached", "max_pages", o.maxPages)
			break
		}

		select {
		case slots <- struct{}{}:
		case <-o.stopCh:
		case <-ctx.Done():
		}
		if o.stopped() || ctx.Err() != nil {
			break
		}

		entry, ok := o.frontier.Pop(o.gate.TryAcquire)
		if !ok {
			<-slots
			if o.frontier.Idle() {
				break
			}
			timer.Reset(o.pollInterval)
			select {
			case <-o.wake:
			case <-timer.C:
			case <-o.stopCh:
			case <-ctx.Done():
			}
			continue
		}

		entry.AttemptCount++
		o.stats.dispatched.Add(1)
		g.Go(func() error {
			defer func() {
				<-slots
				o.signal()
			}()
			o.process(gctx, entry)
			// Failures are per URL and never cancel other workers.
			return nil
		})
	}

	if o.stopped() {
		o.logger.Info("dispatch halted, waiting for in-flight fetches",
			"in_flight", o.frontier.InFlight(),
			"pending", o.frontier.Len(),
		)
	}
	_ = g.Wait()
}

// signal wakes the dispatcher after a worker finished.
func (o *Orchestrator) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// process handles one admitted entry. The gate slot of its host is held
// on entry and released here.
func (o *Orchestrator) process(ctx context.Context, entry model.FrontierEntry) {
	host := entry.Host()
	done := true
	defer func() {
		if done {
			o.frontier.Done(entry.URL)
		}
	}()

	if o.robots != nil {
		allowed, delay := o.robots.Allowed(ctx, entry.URL)
		if delay > 0 {
			o.gate.RaiseCrawlDelay(host, delay)
		}
		if !allowed {
			o.gate.Release(host)
			o.stats.robotsDenied.Add(1)
			o.dedup.MarkPage(ctx, entry.URL)
			o.logger.Debug("disallowed by robots.txt", "url", entry.URL)
			return
		}
	}

	result := o.fetcher.Fetch(fetcher.WithStop(ctx, o.stopCh), entry.URL)

	if ctx.Err() != nil || errors.Is(result.Err, context.Canceled) {
		o.gate.Release(host)
		o.logger.Debug("fetch aborted", "url", entry.URL)
		return
	}

	// A permanent failure still means the host answered.
	o.gate.Record(host, result.Err == nil || fetcher.IsPermanent(result.Err))

	if result.Err != nil {
		o.stats.fetchFailed.Add(1)
		if fetcher.IsTransient(result.Err) && entry.AttemptCount <= o.requeueLimit {
			if o.frontier.Requeue(entry) {
				done = false
				o.stats.requeued.Add(1)
				o.logger.Info("fetch failed, requeued",
					"url", entry.URL,
					"attempt", entry.AttemptCount,
					"error", result.Err,
				)
				return
			}
		}
		o.logger.Warn("fetch failed",
			"url", entry.URL,
			"attempts", result.Attempts,
			"error", result.Err,
		)
		o.dedup.MarkPage(ctx, entry.URL)
		return
	}

	o.stats.fetched.Add(1)
	o.dedup.MarkPage(ctx, entry.URL)
	if result.FinalURL != "" {
		if final, err := model.NormalizeURL(result.FinalURL); err == nil && final != entry.URL {
			o.dedup.MarkPage(ctx, final)
		}
	}

	out := o.pipeline.Extract(entry, &result)
	if out.Feed {
		o.stats.feeds.Add(1)
	}
	for _, link := range out.Links {
		if o.frontier.Push(link) {
			o.stats.links.Add(1)
		}
	}
	if len(out.Links) > 0 {
		o.signal()
	}

	rec := out.Record
	if rec == nil {
		return
	}
	o.stats.extracted.Add(1)

	if rule := o.filter.Evaluate(rec); rule == relevance.RuleRejected {
		o.stats.rejected.Add(1)
		o.logger.Debug("record rejected", "url", entry.URL, "name", rec.Name)
		return
	}
	o.stats.accepted.Add(1)

	if !o.dedup.ClaimRecord(rec.Fingerprint) {
		o.stats.duplicates.Add(1)
		o.logger.Debug("duplicate record", "fingerprint", rec.Fingerprint.Short())
		return
	}

	o.write(ctx, rec)
}

// write sends rec to the sink. A failed write is kept for one retry while
// draining.
func (o *Orchestrator) write(ctx context.Context, rec *model.CandidateRecord) {
	err := o.writeOnce(ctx, rec)
	if err == nil {
		return
	}

	o.stats.sinkRetried.Add(1)
	o.logger.Warn("sink write failed, will retry",
		"url", rec.SourceURL,
		"fingerprint", rec.Fingerprint.Short(),
		"error", err,
	)
	o.retryMu.Lock()
	o.retries = append(o.retries, sinkRetry{record: rec, err: err})
	o.retryMu.Unlock()
}

// writeOnce performs one sink write on a context that ignores cancellation
// of ctx.
func (o *Orchestrator) writeOnce(ctx context.Context, rec *model.CandidateRecord) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.sinkTimeout)
	defer cancel()

	if err := o.sink.Write(wctx, rec); err != nil {
		return err
	}
	o.stats.wrote(rec.Category)
	o.logger.Info("record written",
		"name", rec.Name,
		"category", rec.Category,
		"url", rec.SourceURL,
	)
	return nil
}

// flushRetries writes the records whose first write failed. Records that
// fail again are dead-lettered.
func (o *Orchestrator) flushRetries(ctx context.Context) {
	o.retryMu.Lock()
	retries := o.retries
	o.retries = nil
	o.retryMu.Unlock()

	for _, r := range retries {
		err := o.writeOnce(ctx, r.record)
		if err == nil {
			continue
		}
		o.deadLetter(ctx, r.record, err)
	}
}

func (o *Orchestrator) deadLetter(ctx context.Context, rec *model.CandidateRecord, cause error) {
	o.stats.deadLettered.Add(1)
	dl := &model.DeadLetter{
		RunID:     o.runID,
		Record:    *rec,
		Error:     cause.Error(),
		Attempts:  2,
		CreatedAt: o.now(),
	}

	if o.deadLetters == nil {
		o.logger.Error("record dropped after retry",
			"url", rec.SourceURL,
			"fingerprint", rec.Fingerprint.Short(),
			"error", cause,
		)
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.sinkTimeout)
	defer cancel()
	if err := o.deadLetters.DeadLetter(dctx, dl); err != nil {
		o.logger.Error("failed to dead-letter record",
			"url", rec.SourceURL,
			"fingerprint", rec.Fingerprint.Short(),
			"error", errors.Join(cause, err),
		)
		return
	}
	o.logger.Warn("record dead-lettered",
		"url", rec.SourceURL,
		"fingerprint", rec.Fingerprint.Short(),
		"error", cause,
	)
}
