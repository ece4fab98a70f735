package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file looked up in the working directory.
const DefaultConfigFile = ".k8crawler.yaml"

// xdgConfigFile is the configuration file looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

// LoadFile reads a YAML or TOML configuration file, chosen by extension,
// on top of the defaults of NewConfig. Unknown keys are rejected.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := NewConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, ErrUnsupportedFormat
	}

	cfg.normalizeSites()
	return cfg, nil
}

// normalizeSites lower-cases site keys so lookups by host match.
func (c *Config) normalizeSites() {
	if c.Sites == nil {
		c.Sites = make(map[string]SiteConfig)
		return
	}
	normalized := make(map[string]SiteConfig, len(c.Sites))
	for host, site := range c.Sites {
		normalized[strings.ToLower(strings.TrimSpace(host))] = site
	}
	c.Sites = normalized
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .k8crawler.yaml in the current directory
//  3. config.yaml in the XDG config directory
//
// It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), xdgConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}
	return ""
}
