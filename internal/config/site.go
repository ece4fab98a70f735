package config

import (
	"maps"
	"strings"
	"time"
)

// SiteConfig holds overrides for a single host.
type SiteConfig struct {
	// CrawlDelay overrides per_host_delay. A nil value keeps the global delay;
	// an explicit zero disables the delay for this host.
	CrawlDelay *Duration `yaml:"crawl_delay,omitempty" toml:"crawl_delay,omitempty" json:"crawl_delay,omitempty"`

	// ConcurrentLimit overrides concurrent_limit when positive.
	ConcurrentLimit int `yaml:"concurrent_limit,omitempty" toml:"concurrent_limit,omitempty" json:"concurrent_limit,omitempty"`

	// MaxDepth overrides max_depth when positive.
	MaxDepth int `yaml:"max_depth,omitempty" toml:"max_depth,omitempty" json:"max_depth,omitempty"`

	// UserAgent overrides user_agent when set.
	UserAgent string `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Headers are extra HTTP headers sent to this host.
	Headers map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty" json:"headers,omitempty"`

	// IgnorePatterns are URL path globs that are never followed.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty" toml:"ignore_patterns,omitempty" json:"ignore_patterns,omitempty"`

	// FollowPatterns, when set, restrict followed links to matching paths.
	FollowPatterns []string `yaml:"follow_patterns,omitempty" toml:"follow_patterns,omitempty" json:"follow_patterns,omitempty"`
}

func (s SiteConfig) validate(field string) error {
	if s.CrawlDelay != nil && *s.CrawlDelay < 0 {
		return invalid(field+".crawl_delay", ErrInvalidCrawlDelay)
	}
	if s.ConcurrentLimit < 0 {
		return invalid(field+".concurrent_limit", ErrInvalidConcurrentLimit)
	}
	if s.MaxDepth < 0 {
		return invalid(field+".max_depth", ErrInvalidMaxDepth)
	}
	if !validPatterns(s.IgnorePatterns) {
		return invalid(field+".ignore_patterns", ErrInvalidPattern)
	}
	if !validPatterns(s.FollowPatterns) {
		return invalid(field+".follow_patterns", ErrInvalidPattern)
	}
	return nil
}

// GetSiteConfig returns the overrides for host merged over Defaults.
// Host matching is case-insensitive.
func (c *Config) GetSiteConfig(host string) SiteConfig {
	result := c.Defaults
	if len(c.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(c.Defaults.Headers)
	}

	site, ok := c.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if site.CrawlDelay != nil {
		result.CrawlDelay = site.CrawlDelay
	}
	if site.ConcurrentLimit > 0 {
		result.ConcurrentLimit = site.ConcurrentLimit
	}
	if site.MaxDepth > 0 {
		result.MaxDepth = site.MaxDepth
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

// CrawlDelayFor returns the effective crawl delay of host.
func (c *Config) CrawlDelayFor(host string) time.Duration {
	if site := c.GetSiteConfig(host); site.CrawlDelay != nil {
		return site.CrawlDelay.Std()
	}
	return c.PerHostDelay.Std()
}

// ConcurrentLimitFor returns the effective in-flight limit of host.
func (c *Config) ConcurrentLimitFor(host string) int {
	if site := c.GetSiteConfig(host); site.ConcurrentLimit > 0 {
		return site.ConcurrentLimit
	}
	return c.ConcurrentLimit
}

// MaxDepthFor returns the effective maximum link depth of host.
func (c *Config) MaxDepthFor(host string) int {
	if site := c.GetSiteConfig(host); site.MaxDepth > 0 {
		return site.MaxDepth
	}
	return c.MaxDepth
}

// UserAgentFor returns the effective User-Agent of host.
func (c *Config) UserAgentFor(host string) string {
	if site := c.GetSiteConfig(host); site.UserAgent != "" {
		return site.UserAgent
	}
	return c.UserAgent
}
