package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("YAML overrides defaults", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.yaml", `
seeds:
  - url: https://example-library.org/kids
    priority: 10
max_concurrency: 4
per_host_delay: 250ms
fetch_timeout: 30
relevance_window:
  age_min: 6
  age_max: 12
output:
  db_dir: /var/lib/k8crawler
  jsonl: records.jsonl
sites:
  Example-Library.org:
    crawl_delay: 2s
    concurrent_limit: 2
    ignore_patterns:
      - /admin/*
`)

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0].Priority != 10 {
			t.Errorf("Seeds = %+v", cfg.Seeds)
		}
		if cfg.MaxConcurrency != 4 {
			t.Errorf("MaxConcurrency = %d, want 4", cfg.MaxConcurrency)
		}
		if cfg.PerHostDelay.Std() != 250*time.Millisecond {
			t.Errorf("PerHostDelay = %v, want 250ms", cfg.PerHostDelay)
		}
		if cfg.FetchTimeout.Std() != 30*time.Second {
			t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout)
		}
		if cfg.RelevanceWindow.AgeMin != 6 || cfg.RelevanceWindow.AgeMax != 12 {
			t.Errorf("RelevanceWindow = %+v", cfg.RelevanceWindow)
		}
		if cfg.MaxRetries != DefaultMaxRetries {
			t.Errorf("MaxRetries = %d, want default %d", cfg.MaxRetries, DefaultMaxRetries)
		}
		if got := cfg.CrawlDelayFor("example-library.org"); got != 2*time.Second {
			t.Errorf("CrawlDelayFor() = %v, want 2s", got)
		}
		if got := cfg.ConcurrentLimitFor("example-library.org"); got != 2 {
			t.Errorf("ConcurrentLimitFor() = %d, want 2", got)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("TOML is decoded by extension", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.toml", `
max_concurrency = 3
per_host_delay = "2s"
respect_robots = false

[[seeds]]
url = "https://youth.example.com/"
priority = 5

[output]
jsonl = "out.jsonl"
`)

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if cfg.MaxConcurrency != 3 {
			t.Errorf("MaxConcurrency = %d, want 3", cfg.MaxConcurrency)
		}
		if cfg.PerHostDelay.Std() != 2*time.Second {
			t.Errorf("PerHostDelay = %v, want 2s", cfg.PerHostDelay)
		}
		if cfg.RespectRobots {
			t.Error("RespectRobots should be false")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0].URL != "https://youth.example.com/" {
			t.Errorf("Seeds = %+v", cfg.Seeds)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.yaml", "max_concurency: 4\n")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for misspelled key")
		}
	})

	t.Run("bad duration is rejected", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.yaml", "per_host_delay: soon\n")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for bad duration")
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.ini", "max_concurrency=4\n")
		if _, err := LoadFile(path); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.yaml", "")
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if cfg.MaxConcurrency != DefaultMaxConcurrency {
			t.Errorf("MaxConcurrency = %d, want default", cfg.MaxConcurrency)
		}
		if !errors.Is(cfg.Validate(), ErrNoSeeds) {
			t.Error("expected ErrNoSeeds for empty file")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "crawl.yaml", "max_concurrency: 1\n")
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

func TestGetSiteConfig(t *testing.T) {
	t.Parallel()

	delay := Duration(0)
	cfg := validConfig()
	cfg.Defaults = SiteConfig{
		Headers:        map[string]string{"Accept-Language": "en"},
		IgnorePatterns: []string{"*.pdf"},
	}
	cfg.Sites["library.example.org"] = SiteConfig{
		CrawlDelay: &delay,
		MaxDepth:   5,
		UserAgent:  "custom",
		Headers:    map[string]string{"X-Trace": "1"},
	}

	t.Run("site overrides merge over defaults", func(t *testing.T) {
		t.Parallel()

		site := cfg.GetSiteConfig("Library.Example.org")
		if site.Headers["Accept-Language"] != "en" || site.Headers["X-Trace"] != "1" {
			t.Errorf("Headers = %v", site.Headers)
		}
		if len(site.IgnorePatterns) != 1 {
			t.Errorf("IgnorePatterns = %v, want defaults", site.IgnorePatterns)
		}
		if cfg.Defaults.Headers["X-Trace"] != "" {
			t.Error("defaults were mutated by merge")
		}
	})

	t.Run("explicit zero delay overrides global", func(t *testing.T) {
		t.Parallel()

		if got := cfg.CrawlDelayFor("library.example.org"); got != 0 {
			t.Errorf("CrawlDelayFor() = %v, want 0", got)
		}
		if got := cfg.CrawlDelayFor("other.example.org"); got != DefaultPerHostDelay {
			t.Errorf("CrawlDelayFor() = %v, want default", got)
		}
	})

	t.Run("depth and user agent", func(t *testing.T) {
		t.Parallel()

		if got := cfg.MaxDepthFor("library.example.org"); got != 5 {
			t.Errorf("MaxDepthFor() = %d, want 5", got)
		}
		if got := cfg.UserAgentFor("library.example.org"); got != "custom" {
			t.Errorf("UserAgentFor() = %q, want custom", got)
		}
		if got := cfg.UserAgentFor("other.example.org"); got != DefaultUserAgent {
			t.Errorf("UserAgentFor() = %q, want default", got)
		}
	})
}
