package crawler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/k8crawler/internal/config"
	"github.com/nao1215/k8crawler/internal/dedup"
	"github.com/nao1215/k8crawler/internal/extract"
	"github.com/nao1215/k8crawler/internal/fetcher"
	"github.com/nao1215/k8crawler/internal/frontier"
	"github.com/nao1215/k8crawler/internal/politeness"
	"github.com/nao1215/k8crawler/internal/relevance"
	"github.com/nao1215/k8crawler/internal/sink"
)

// Deps are the collaborators of an orchestrator built from configuration.
type Deps struct {
	// Sink receives accepted records. Required.
	Sink sink.Sink

	// DeadLetters receives records that could not be written.
	DeadLetters sink.DeadLetterQueue

	// Journal persists page visits between runs.
	Journal dedup.Journal

	// Runs persists run summaries.
	Runs RunStore

	// Client overrides the HTTP client built from cfg.Proxy.
	Client *http.Client

	// ConfigPath is recorded in the run summary.
	ConfigPath string

	Logger *slog.Logger
}

// NewFromConfig validates cfg and builds an orchestrator with every
// component configured from it. Validation errors are returned unchanged
// so callers can match the config sentinels.
func NewFromConfig(cfg *config.Config, deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := deps.Client
	if client == nil {
		c, err := fetcher.NewHTTPClient(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		client = c
	}

	storeOpts := []dedup.Option{
		dedup.WithCooldown(cfg.RecrawlCooldown.Std()),
		dedup.WithLogger(logger),
	}
	if deps.Journal != nil {
		storeOpts = append(storeOpts, dedup.WithJournal(deps.Journal))
	}
	store := dedup.New(storeOpts...)

	gate := politeness.NewGate(
		politeness.WithCrawlDelay(cfg.PerHostDelay.Std()),
		politeness.WithConcurrentLimit(cfg.ConcurrentLimit),
		politeness.WithFailureThreshold(cfg.FailureThreshold),
		politeness.WithBackoff(cfg.BackoffBase.Std(), cfg.MaxBackoff.Std()),
		politeness.WithMaxHosts(cfg.MaxHosts),
		politeness.WithHostOverride(func(host string) (time.Duration, int, bool) {
			return cfg.CrawlDelayFor(host), cfg.ConcurrentLimitFor(host), true
		}),
		politeness.WithLogger(logger),
	)

	f := fetcher.New(
		fetcher.WithClient(client),
		fetcher.WithTimeout(cfg.FetchTimeout.Std()),
		fetcher.WithMaxRetries(cfg.MaxRetries),
		fetcher.WithBackoff(cfg.RetryBackoff.Std()),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(func(host string) (string, map[string]string) {
			return cfg.UserAgentFor(host), cfg.GetSiteConfig(host).Headers
		}),
		fetcher.WithLogger(logger),
	)

	linkOpts := []extract.LinkOption{
		extract.WithMaxDepth(cfg.MaxDepthFor),
		extract.WithPatterns(func(host string) ([]string, []string) {
			site := cfg.GetSiteConfig(host)
			return site.IgnorePatterns, site.FollowPatterns
		}),
	}
	if cfg.StayOnSeedHosts {
		linkOpts = append(linkOpts, extract.WithSeedHosts(cfg.SeedHosts()))
	}
	pipeline := extract.New(
		extract.WithLinkExtractor(extract.NewLinkExtractor(cfg.LinkKeywords, linkOpts...)),
		extract.WithLogger(logger),
	)

	all := []Option{
		WithDedup(store),
		WithFrontier(frontier.New(frontier.WithSeenIndex(store), frontier.WithLogger(logger))),
		WithGate(gate),
		WithFetcher(f),
		WithPipeline(pipeline),
		WithFilter(relevance.New(cfg.RelevanceWindow.AgeMin, cfg.RelevanceWindow.AgeMax)),
		WithSink(deps.Sink),
		WithDeadLetters(deps.DeadLetters),
		WithRunStore(deps.Runs),
		WithSeeds(cfg.Seeds...),
		WithConcurrency(cfg.MaxConcurrency),
		WithRequeueLimit(cfg.RequeueLimit),
		WithMaxPages(cfg.MaxPages),
		WithConfigPath(deps.ConfigPath),
		WithLogger(logger),
	}
	if cfg.RespectRobots {
		robots := politeness.NewRobots(client, cfg.UserAgent,
			politeness.WithRobotsTTL(cfg.RobotsTTL.Std()),
			politeness.WithRobotsTimeout(cfg.FetchTimeout.Std()),
			politeness.WithRobotsLogger(logger),
		)
		all = append(all, WithRobots(robots))
	}
	return New(append(all, opts...)...), nil
}
