package politeness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"
)

// Default robots settings.
const (
	DefaultRobotsTTL      = 1 * time.Hour
	DefaultRobotsCacheLen = 4096
	DefaultRobotsTimeout  = 10 * time.Second
	maxRobotsSize         = 512 * 1024
)

// robotsEntry is a cached robots.txt. A nil rules value allows everything.
type robotsEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// Robots evaluates robots.txt rules with a TTL cache per host.
type Robots struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	timeout   time.Duration

	cache *lru.Cache[string, robotsEntry]
	// fetching serializes the first fetch of each host.
	fetching sync.Map

	now    func() time.Time
	logger *slog.Logger
}

// RobotsOption configures Robots.
type RobotsOption func(*Robots)

// WithRobotsTTL sets how long a robots.txt stays cached.
func WithRobotsTTL(ttl time.Duration) RobotsOption {
	return func(r *Robots) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRobotsTimeout bounds a single robots.txt request. A host that does
// not answer in time is treated as having no robots.txt.
func WithRobotsTimeout(d time.Duration) RobotsOption {
	return func(r *Robots) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRobotsClock sets the time source.
func WithRobotsClock(now func() time.Time) RobotsOption {
	return func(r *Robots) {
		r.now = now
	}
}

// WithRobotsLogger sets the logger.
func WithRobotsLogger(logger *slog.Logger) RobotsOption {
	return func(r *Robots) {
		r.logger = logger
	}
}

// NewRobots creates a robots cache that fetches with client and matches
// rules for userAgent.
func NewRobots(client *http.Client, userAgent string, opts ...RobotsOption) *Robots {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cache, err := lru.New[string, robotsEntry](DefaultRobotsCacheLen)
	if err != nil {
		panic(err)
	}
	r := &Robots{
		client:    client,
		userAgent: userAgent,
		ttl:       DefaultRobotsTTL,
		timeout:   DefaultRobotsTimeout,
		cache:     cache,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allowed reports whether rawURL may be fetched, and the Crawl-delay the
// host asks for (zero if none). Unreachable or broken robots files allow
// everything.
func (r *Robots) Allowed(ctx context.Context, rawURL string) (bool, time.Duration) {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false, 0
	}

	rules := r.rules(ctx, target)
	if rules == nil {
		return true, 0
	}
	group := rules.FindGroup(r.userAgent)
	if group == nil {
		return true, 0
	}

	path := target.EscapedPath()
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return group.Test(path), group.CrawlDelay
}

func (r *Robots) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Host
	if entry, ok := r.fresh(host); ok {
		return entry.rules
	}

	muAny, _ := r.fetching.LoadOrStore(host, &sync.Mutex{})
	mu := muAny.(*sync.Mutex) //nolint:forcetypeassert // only mutexes are stored
	mu.Lock()
	defer mu.Unlock()

	if entry, ok := r.fresh(host); ok {
		return entry.rules
	}

	rules, err := r.fetch(ctx, target)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing host", "host", host, "error", err)
		if ctx.Err() != nil {
			return nil
		}
	}
	r.cache.Add(host, robotsEntry{fetched: r.now(), rules: rules})
	return rules
}

func (r *Robots) fresh(host string) (robotsEntry, bool) {
	entry, ok := r.cache.Get(host)
	if !ok || r.now().Sub(entry.fetched) >= r.ttl {
		return robotsEntry{}, false
	}
	return entry, true
}

func (r *Robots) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Purge drops the cached rules of host.
func (r *Robots) Purge(host string) {
	r.cache.Remove(host)
}
