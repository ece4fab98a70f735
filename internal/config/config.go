package config

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/k8crawler/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "k8crawler"

	// DefaultMaxConcurrency is the size of the fetch worker pool.
	DefaultMaxConcurrency = 8

	// DefaultPerHostDelay is the minimum time between two fetches to one host.
	DefaultPerHostDelay = 1 * time.Second

	// DefaultMaxRetries is the number of retries after a transient fetch failure.
	DefaultMaxRetries = 2

	// DefaultRetryBackoff is multiplied by the attempt number between retries.
	DefaultRetryBackoff = 1 * time.Second

	// DefaultFetchTimeout bounds a single fetch attempt.
	DefaultFetchTimeout = 15 * time.Second

	// DefaultAgeMin and DefaultAgeMax bound the accepted age window.
	DefaultAgeMin = 5
	DefaultAgeMax = 14

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "k8crawler/1.0 (+https://github.com/nao1215/k8crawler)"

	// DefaultMaxBodySize caps the number of body bytes read per response.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxDepth is the maximum number of link hops from a seed.
	DefaultMaxDepth = 3

	// DefaultFailureThreshold is the number of consecutive failures before a host cools down.
	DefaultFailureThreshold = 5

	// DefaultBackoffBase is the first cooldown after crossing the failure threshold.
	DefaultBackoffBase = 30 * time.Second

	// DefaultMaxBackoff caps a host cooldown.
	DefaultMaxBackoff = 30 * time.Minute

	// DefaultRecrawlCooldown is how long a fetched page is not fetched again.
	DefaultRecrawlCooldown = 24 * time.Hour

	// DefaultRobotsTTL is how long a robots.txt stays cached.
	DefaultRobotsTTL = 1 * time.Hour

	// DefaultMaxHosts bounds the number of hosts tracked by the politeness gate.
	DefaultMaxHosts = 10000

	// DefaultConcurrentLimit is the number of in-flight requests allowed per host.
	DefaultConcurrentLimit = 1

	// DefaultRequeueLimit is how many times a transiently failed URL is re-queued.
	DefaultRequeueLimit = 1

	// DefaultDBFile is the SQLite file created inside output.db_dir.
	DefaultDBFile = "k8crawler.db"
)

// DefaultLinkKeywords select the links worth following.
var DefaultLinkKeywords = []string{
	"program", "service", "class", "activity", "event",
	"kids", "youth", "children", "tutor", "mentor", "library",
	"community", "education", "cultural", "parks", "recreation",
}

// RelevanceWindow is the inclusive age range of accepted records.
type RelevanceWindow struct {
	AgeMin int `yaml:"age_min" toml:"age_min" json:"age_min"`
	AgeMax int `yaml:"age_max" toml:"age_max" json:"age_max"`
}

// Output selects where records and dead letters are written.
type Output struct {
	// DBDir is the directory holding the SQLite database.
	// Records, dead letters, page history and run history go there.
	DBDir string `yaml:"db_dir" toml:"db_dir" json:"db_dir"`

	// JSONL is an optional NDJSON file receiving every accepted record.
	JSONL string `yaml:"jsonl" toml:"jsonl" json:"jsonl,omitempty"`

	// DeadLetter is an optional NDJSON file for records the sink rejected twice.
	// When empty and DBDir is set, dead letters go to the database.
	DeadLetter string `yaml:"dead_letter" toml:"dead_letter" json:"dead_letter,omitempty"`
}

// Config is the run configuration of a crawl.
type Config struct {
	// Seeds are the starting URLs of the crawl.
	Seeds []model.Seed `yaml:"seeds" toml:"seeds" json:"seeds"`

	MaxConcurrency int      `yaml:"max_concurrency" toml:"max_concurrency" json:"max_concurrency"`
	PerHostDelay   Duration `yaml:"per_host_delay" toml:"per_host_delay" json:"per_host_delay"`
	MaxRetries     int      `yaml:"max_retries" toml:"max_retries" json:"max_retries"`
	RetryBackoff   Duration `yaml:"retry_backoff" toml:"retry_backoff" json:"retry_backoff"`
	FetchTimeout   Duration `yaml:"fetch_timeout" toml:"fetch_timeout" json:"fetch_timeout"`

	RelevanceWindow RelevanceWindow `yaml:"relevance_window" toml:"relevance_window" json:"relevance_window"`

	UserAgent   string `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	MaxBodySize int64  `yaml:"max_body_size" toml:"max_body_size" json:"max_body_size"`

	// MaxDepth is the maximum link distance from a seed. Zero crawls seeds only.
	MaxDepth int `yaml:"max_depth" toml:"max_depth" json:"max_depth"`

	// MaxPages stops dispatching after this many pages. Zero means unlimited.
	MaxPages int `yaml:"max_pages" toml:"max_pages" json:"max_pages"`

	FailureThreshold int      `yaml:"failure_threshold" toml:"failure_threshold" json:"failure_threshold"`
	BackoffBase      Duration `yaml:"backoff_base" toml:"backoff_base" json:"backoff_base"`
	MaxBackoff       Duration `yaml:"max_backoff" toml:"max_backoff" json:"max_backoff"`

	// RecrawlCooldown keeps a fetched page out of the frontier for this long.
	RecrawlCooldown Duration `yaml:"recrawl_cooldown" toml:"recrawl_cooldown" json:"recrawl_cooldown"`

	RespectRobots bool     `yaml:"respect_robots" toml:"respect_robots" json:"respect_robots"`
	RobotsTTL     Duration `yaml:"robots_ttl" toml:"robots_ttl" json:"robots_ttl"`

	MaxHosts        int `yaml:"max_hosts" toml:"max_hosts" json:"max_hosts"`
	ConcurrentLimit int `yaml:"concurrent_limit" toml:"concurrent_limit" json:"concurrent_limit"`

	// LinkKeywords select links by URL or anchor text.
	LinkKeywords []string `yaml:"link_keywords" toml:"link_keywords" json:"link_keywords"`

	// StayOnSeedHosts drops links leading away from the seed hosts.
	StayOnSeedHosts bool `yaml:"stay_on_seed_hosts" toml:"stay_on_seed_hosts" json:"stay_on_seed_hosts"`

	RequeueLimit int `yaml:"requeue_limit" toml:"requeue_limit" json:"requeue_limit"`

	// Proxy is an optional socks5://, http:// or https:// proxy URL.
	Proxy string `yaml:"proxy" toml:"proxy" json:"proxy,omitempty"`

	Output Output `yaml:"output" toml:"output" json:"output"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults" toml:"defaults" json:"defaults"`

	// Sites maps a host name to its overrides.
	Sites map[string]SiteConfig `yaml:"sites" toml:"sites" json:"sites,omitempty"`
}

// NewConfig creates a Config with default values and no seeds.
func NewConfig() *Config {
	return &Config{
		MaxConcurrency:   DefaultMaxConcurrency,
		PerHostDelay:     Duration(DefaultPerHostDelay),
		MaxRetries:       DefaultMaxRetries,
		RetryBackoff:     Duration(DefaultRetryBackoff),
		FetchTimeout:     Duration(DefaultFetchTimeout),
		RelevanceWindow:  RelevanceWindow{AgeMin: DefaultAgeMin, AgeMax: DefaultAgeMax},
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		MaxDepth:         DefaultMaxDepth,
		FailureThreshold: DefaultFailureThreshold,
		BackoffBase:      Duration(DefaultBackoffBase),
		MaxBackoff:       Duration(DefaultMaxBackoff),
		RecrawlCooldown:  Duration(DefaultRecrawlCooldown),
		RespectRobots:    true,
		RobotsTTL:        Duration(DefaultRobotsTTL),
		MaxHosts:         DefaultMaxHosts,
		ConcurrentLimit:  DefaultConcurrentLimit,
		LinkKeywords:     append([]string(nil), DefaultLinkKeywords...),
		StayOnSeedHosts:  true,
		RequeueLimit:     DefaultRequeueLimit,
		Output:           Output{DBDir: XDGDataDir()},
		Sites:            make(map[string]SiteConfig),
	}
}

// XDGDataDir returns the XDG data directory, e.g. ~/.local/share/k8crawler.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory, e.g. ~/.config/k8crawler.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory, e.g. ~/.local/state/k8crawler.
// The pid file of a running crawl lives there.
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DBPath returns the SQLite database path, or "" when no database is configured.
func (c *Config) DBPath() string {
	if c.Output.DBDir == "" {
		return ""
	}
	return filepath.Join(c.Output.DBDir, DefaultDBFile)
}

// SeedHosts returns the normalized hosts of all seeds.
func (c *Config) SeedHosts() []string {
	hosts := make([]string, 0, len(c.Seeds))
	seen := make(map[string]bool, len(c.Seeds))
	for _, seed := range c.Seeds {
		host := model.HostOf(seed.URL)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}

// Validate checks the configuration and returns the first problem found
// as a *ValidationError wrapping one of the package sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return invalid("seeds", ErrNoSeeds)
	}
	for i, seed := range c.Seeds {
		if _, err := model.NormalizeURL(seed.URL); err != nil {
			return invalid(fmt.Sprintf("seeds[%d].url", i), ErrInvalidSeed)
		}
	}

	if c.MaxConcurrency <= 0 {
		return invalid("max_concurrency", ErrInvalidConcurrency)
	}
	if c.PerHostDelay < 0 {
		return invalid("per_host_delay", ErrInvalidCrawlDelay)
	}
	if c.MaxRetries < 0 {
		return invalid("max_retries", ErrInvalidRetries)
	}
	if c.RetryBackoff < 0 {
		return invalid("retry_backoff", ErrInvalidBackoff)
	}
	if c.FetchTimeout <= 0 {
		return invalid("fetch_timeout", ErrInvalidTimeout)
	}

	w := c.RelevanceWindow
	if w.AgeMin < 0 || w.AgeMin > w.AgeMax {
		return invalid("relevance_window", ErrInvalidRelevanceWindow)
	}

	if c.MaxBodySize < 0 {
		return invalid("max_body_size", ErrInvalidMaxBodySize)
	}
	if c.MaxDepth < 0 {
		return invalid("max_depth", ErrInvalidMaxDepth)
	}
	if c.MaxPages < 0 {
		return invalid("max_pages", ErrInvalidMaxPages)
	}
	if c.FailureThreshold <= 0 {
		return invalid("failure_threshold", ErrInvalidFailureThreshold)
	}
	if c.BackoffBase <= 0 || c.MaxBackoff < c.BackoffBase {
		return invalid("backoff_base", ErrInvalidBackoff)
	}
	if c.MaxHosts <= 0 {
		return invalid("max_hosts", ErrInvalidMaxHosts)
	}
	if c.ConcurrentLimit <= 0 {
		return invalid("concurrent_limit", ErrInvalidConcurrentLimit)
	}
	if c.RequeueLimit < 0 {
		return invalid("requeue_limit", ErrInvalidRequeueLimit)
	}
	if c.Proxy != "" && !validProxy(c.Proxy) {
		return invalid("proxy", ErrInvalidProxy)
	}
	if c.Output.DBDir == "" && c.Output.JSONL == "" {
		return invalid("output", ErrNoOutput)
	}

	if err := c.Defaults.validate("defaults"); err != nil {
		return err
	}
	for host, site := range c.Sites {
		if err := site.validate("sites." + host); err != nil {
			return err
		}
	}
	return nil
}

func validProxy(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h", "http", "https":
		return true
	default:
		return false
	}
}

func validPatterns(patterns []string) bool {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return false
		}
	}
	return true
}
