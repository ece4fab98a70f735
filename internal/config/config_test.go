package config

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Seeds = []model.Seed{{URL: "https://example-library.org/kids", Priority: 10}}
	cfg.Output.DBDir = "/tmp/k8crawler-test"
	return cfg
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxConcurrency is 8", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxConcurrency != 8 {
			t.Errorf("MaxConcurrency = %d, want 8", cfg.MaxConcurrency)
		}
	})

	t.Run("default FetchTimeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.FetchTimeout.Std() != 15*time.Second {
			t.Errorf("FetchTimeout = %v, want 15s", cfg.FetchTimeout)
		}
	})

	t.Run("default link keywords cover community and parks sites", func(t *testing.T) {
		t.Parallel()
		for _, kw := range []string{"library", "community", "education", "cultural", "parks", "recreation"} {
			if !slices.Contains(cfg.LinkKeywords, kw) {
				t.Errorf("LinkKeywords = %v, missing %q", cfg.LinkKeywords, kw)
			}
		}
	})

	t.Run("default MaxRetries is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
		}
	})

	t.Run("default relevance window is 5 to 14", func(t *testing.T) {
		t.Parallel()
		if cfg.RelevanceWindow.AgeMin != 5 || cfg.RelevanceWindow.AgeMax != 14 {
			t.Errorf("RelevanceWindow = %+v, want 5-14", cfg.RelevanceWindow)
		}
	})

	t.Run("default failure threshold is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.FailureThreshold != 5 {
			t.Errorf("FailureThreshold = %d, want 5", cfg.FailureThreshold)
		}
	})

	t.Run("robots and seed host restriction are on", func(t *testing.T) {
		t.Parallel()
		if !cfg.RespectRobots || !cfg.StayOnSeedHosts {
			t.Error("expected RespectRobots and StayOnSeedHosts to default to true")
		}
	})

	t.Run("default concurrent limit is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.ConcurrentLimit != 1 {
			t.Errorf("ConcurrentLimit = %d, want 1", cfg.ConcurrentLimit)
		}
	})

	t.Run("db dir defaults to XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.Output.DBDir != XDGDataDir() {
			t.Errorf("DBDir = %q, want %q", cfg.Output.DBDir, XDGDataDir())
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		want    error
		wantKey string
	}{
		{name: "no seeds", mutate: func(c *Config) { c.Seeds = nil }, want: ErrNoSeeds, wantKey: "seeds"},
		{name: "ftp seed", mutate: func(c *Config) { c.Seeds[0].URL = "ftp://example.org/" }, want: ErrInvalidSeed, wantKey: "seeds[0].url"},
		{name: "relative seed", mutate: func(c *Config) { c.Seeds[0].URL = "/kids" }, want: ErrInvalidSeed, wantKey: "seeds[0].url"},
		{name: "zero concurrency", mutate: func(c *Config) { c.MaxConcurrency = 0 }, want: ErrInvalidConcurrency, wantKey: "max_concurrency"},
		{name: "negative delay", mutate: func(c *Config) { c.PerHostDelay = Duration(-time.Second) }, want: ErrInvalidCrawlDelay, wantKey: "per_host_delay"},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, want: ErrInvalidRetries, wantKey: "max_retries"},
		{name: "zero timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, want: ErrInvalidTimeout, wantKey: "fetch_timeout"},
		{name: "inverted window", mutate: func(c *Config) { c.RelevanceWindow = RelevanceWindow{AgeMin: 14, AgeMax: 5} }, want: ErrInvalidRelevanceWindow, wantKey: "relevance_window"},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize, wantKey: "max_body_size"},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, want: ErrInvalidMaxDepth, wantKey: "max_depth"},
		{name: "negative pages", mutate: func(c *Config) { c.MaxPages = -1 }, want: ErrInvalidMaxPages, wantKey: "max_pages"},
		{name: "zero failure threshold", mutate: func(c *Config) { c.FailureThreshold = 0 }, want: ErrInvalidFailureThreshold, wantKey: "failure_threshold"},
		{name: "max backoff below base", mutate: func(c *Config) { c.MaxBackoff = Duration(time.Second) }, want: ErrInvalidBackoff, wantKey: "backoff_base"},
		{name: "zero max hosts", mutate: func(c *Config) { c.MaxHosts = 0 }, want: ErrInvalidMaxHosts, wantKey: "max_hosts"},
		{name: "negative requeue", mutate: func(c *Config) { c.RequeueLimit = -1 }, want: ErrInvalidRequeueLimit, wantKey: "requeue_limit"},
		{name: "bad proxy scheme", mutate: func(c *Config) { c.Proxy = "ftp://127.0.0.1:21" }, want: ErrInvalidProxy, wantKey: "proxy"},
		{name: "no output", mutate: func(c *Config) { c.Output = Output{} }, want: ErrNoOutput, wantKey: "output"},
		{
			name:    "bad site pattern",
			mutate:  func(c *Config) { c.Sites["example.org"] = SiteConfig{IgnorePatterns: []string{"[a-"}} },
			want:    ErrInvalidPattern,
			wantKey: "sites.example.org.ignore_patterns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.wantKey {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantKey)
			}
		})
	}

	t.Run("jsonl only output is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Output = Output{JSONL: "records.jsonl"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("socks5 proxy is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Proxy = "socks5://127.0.0.1:9050"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigSeedHosts(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Seeds = []model.Seed{
		{URL: "https://Example-Library.org/kids"},
		{URL: "https://example-library.org/teens"},
		{URL: "http://youth.example.com:8080/"},
	}

	got := cfg.SeedHosts()
	want := []string{"example-library.org", "youth.example.com:8080"}
	if len(got) != len(want) {
		t.Fatalf("SeedHosts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SeedHosts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConfigDBPath(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Output.DBDir = ""
	if got := cfg.DBPath(); got != "" {
		t.Errorf("DBPath() = %q, want empty", got)
	}
}
