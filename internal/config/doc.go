// Package config provides the run configuration of k8crawler: crawl limits,
// politeness settings, the relevance window, seeds, outputs and per-site
// overrides. Configuration is read from YAML or TOML files and validated
// before a crawl starts.
package config
