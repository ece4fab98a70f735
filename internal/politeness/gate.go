package politeness

import (
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"

	"github.com/nao1215/k8crawler/internal/model"
)

// Default gate settings.
const (
	DefaultCrawlDelay       = 1 * time.Second
	DefaultConcurrentLimit  = 1
	DefaultFailureThreshold = 5
	DefaultBackoffBase      = 30 * time.Second
	DefaultMaxBackoff       = 30 * time.Minute
	DefaultMaxHosts         = 10000

	shardCount = 16
)

// HostOverride returns per-host crawl delay and concurrent limit.
// ok is false when the host uses the gate defaults.
type HostOverride func(host string) (delay time.Duration, limit int, ok bool)

// hostState is the mutable state of one host.
type hostState struct {
	mu      sync.Mutex
	policy  model.HostPolicy
	limiter *rate.Limiter
}

// busy reports whether the host has a fetch in flight or is cooling down.
func (st *hostState) busy(now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.policy.InFlight > 0 || now.Before(st.policy.CooldownUntil)
}

// hostShard is one LRU partition of the tracked hosts. Busy hosts are
// never evicted, so a shard may exceed limit while all of them are busy.
type hostShard struct {
	mu    sync.Mutex
	hosts *simplelru.LRU[string, *hostState]
	limit int
}

// Gate enforces per-host politeness.
type Gate struct {
	shards [shardCount]*hostShard

	delay            time.Duration
	concurrentLimit  int
	failureThreshold int
	backoffBase      time.Duration
	maxBackoff       time.Duration
	maxHosts         int
	override         HostOverride

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithCrawlDelay sets the default minimum time between fetch starts per host.
func WithCrawlDelay(d time.Duration) Option {
	return func(g *Gate) {
		g.delay = d
	}
}

// WithConcurrentLimit sets the default number of in-flight requests per host.
func WithConcurrentLimit(n int) Option {
	return func(g *Gate) {
		g.concurrentLimit = n
	}
}

// WithFailureThreshold sets the consecutive failures that start a cooldown.
func WithFailureThreshold(n int) Option {
	return func(g *Gate) {
		g.failureThreshold = n
	}
}

// WithBackoff sets the first cooldown and its cap.
func WithBackoff(base, maxBackoff time.Duration) Option {
	return func(g *Gate) {
		g.backoffBase = base
		g.maxBackoff = maxBackoff
	}
}

// WithMaxHosts bounds the number of tracked hosts. The least recently used
// idle hosts are evicted beyond it.
func WithMaxHosts(n int) Option {
	return func(g *Gate) {
		g.maxHosts = n
	}
}

// WithHostOverride sets a lookup for per-host delay and limit.
func WithHostOverride(fn HostOverride) Option {
	return func(g *Gate) {
		g.override = fn
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		delay:            DefaultCrawlDelay,
		concurrentLimit:  DefaultConcurrentLimit,
		failureThreshold: DefaultFailureThreshold,
		backoffBase:      DefaultBackoffBase,
		maxBackoff:       DefaultMaxBackoff,
		maxHosts:         DefaultMaxHosts,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.concurrentLimit <= 0 {
		g.concurrentLimit = DefaultConcurrentLimit
	}
	if g.failureThreshold <= 0 {
		g.failureThreshold = DefaultFailureThreshold
	}

	perShard := max(g.maxHosts/shardCount, 1)
	for i := range g.shards {
		// Eviction is done by evictIdle, so the LRU itself is unbounded.
		hosts, err := simplelru.NewLRU[string, *hostState](math.MaxInt, nil)
		if err != nil {
			panic(err)
		}
		g.shards[i] = &hostShard{hosts: hosts, limit: perShard}
	}
	return g
}

func (g *Gate) shard(host string) *hostShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return g.shards[h.Sum32()%shardCount]
}

// state returns the state of host, creating it on first use.
func (g *Gate) state(host string) *hostState {
	sh := g.shard(host)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if st, ok := sh.hosts.Get(host); ok {
		return st
	}

	delay, limit := g.delay, g.concurrentLimit
	if g.override != nil {
		if d, l, ok := g.override(host); ok {
			delay = d
			if l > 0 {
				limit = l
			}
		}
	}
	fresh := &hostState{
		policy: model.HostPolicy{
			Host:            host,
			CrawlDelay:      delay,
			ConcurrentLimit: limit,
		},
		limiter: newLimiter(delay),
	}
	sh.hosts.Add(host, fresh)
	g.evictIdle(sh, host)
	return fresh
}

// evictIdle drops the least recently used idle hosts of sh until it is
// within its limit. keep is never dropped. Busy hosts are moved to the
// front and skipped. sh.mu must be held.
func (g *Gate) evictIdle(sh *hostShard, keep string) {
	now := g.now()
	for tries := sh.hosts.Len(); sh.hosts.Len() > sh.limit && tries > 0; tries-- {
		host, st, ok := sh.hosts.GetOldest()
		if !ok {
			return
		}
		if host == keep || st.busy(now) {
			sh.hosts.Get(host)
			continue
		}
		sh.hosts.Remove(host)
		g.logger.Debug("host evicted from politeness cache", "host", host)
	}
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Allow reports whether a fetch to host may start now. On true it reserves
// an in-flight slot and stamps LastFetchTime; the caller must release the
// slot with Record. On false, retryAfter is the earliest time worth asking
// again, or zero when the host is only blocked by in-flight requests.
func (g *Gate) Allow(host string) (bool, time.Duration) {
	st := g.state(host)
	now := g.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if now.Before(st.policy.CooldownUntil) {
		return false, st.policy.CooldownUntil.Sub(now)
	}
	if st.policy.InFlight >= st.policy.ConcurrentLimit {
		return false, 0
	}

	r := st.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, st.policy.CrawlDelay
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}

	st.policy.InFlight++
	st.policy.LastFetchTime = now
	return true, 0
}

// TryAcquire is Allow without the retry hint, for use as a frontier
// admission predicate.
func (g *Gate) TryAcquire(host string) bool {
	ok, _ := g.Allow(host)
	return ok
}

// Record releases the in-flight slot of host and records the outcome.
// A success resets the failure counter. A failure increments it, and once
// it reaches the failure threshold the host cools down for
// backoffBase * 2^(failures-threshold), capped at maxBackoff. Hosts are
// never abandoned.
func (g *Gate) Record(host string, success bool) {
	st := g.state(host)
	now := g.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.policy.InFlight > 0 {
		st.policy.InFlight--
	}

	if success {
		st.policy.ConsecutiveFailures = 0
		return
	}

	st.policy.ConsecutiveFailures++
	if st.policy.ConsecutiveFailures < g.failureThreshold {
		return
	}
	cooldown := g.cooldown(st.policy.ConsecutiveFailures)
	st.policy.CooldownUntil = now.Add(cooldown)
	g.logger.Warn("host cooling down after repeated failures",
		"host", host,
		"failures", st.policy.ConsecutiveFailures,
		"cooldown", cooldown,
	)
}

// Release returns the in-flight slot of host without recording an outcome.
// It is used when an admitted fetch never started.
func (g *Gate) Release(host string) {
	st := g.state(host)
	st.mu.Lock()
	if st.policy.InFlight > 0 {
		st.policy.InFlight--
	}
	st.mu.Unlock()
}

func (g *Gate) cooldown(failures int) time.Duration {
	exp := failures - g.failureThreshold
	d := g.backoffBase
	for range exp {
		if d >= g.maxBackoff {
			break
		}
		d *= 2
	}
	return min(d, g.maxBackoff)
}

// RaiseCrawlDelay raises the crawl delay of host to d if d is larger than
// the current delay, e.g. for a robots.txt Crawl-delay.
func (g *Gate) RaiseCrawlDelay(host string, d time.Duration) {
	st := g.state(host)
	st.mu.Lock()
	defer st.mu.Unlock()
	if d <= st.policy.CrawlDelay {
		return
	}
	st.policy.CrawlDelay = d
	st.limiter.SetLimitAt(g.now(), rate.Every(d))
}

// Policy returns a copy of the policy of host, if the host is tracked.
func (g *Gate) Policy(host string) (model.HostPolicy, bool) {
	sh := g.shard(host)
	sh.mu.Lock()
	st, ok := sh.hosts.Peek(host)
	sh.mu.Unlock()
	if !ok {
		return model.HostPolicy{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.policy, true
}

// Len returns the number of tracked hosts.
func (g *Gate) Len() int {
	n := 0
	for _, sh := range g.shards {
		sh.mu.Lock()
		n += sh.hosts.Len()
		sh.mu.Unlock()
	}
	return n
}
