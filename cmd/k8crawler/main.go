// Package main provides the entry point for the k8crawler CLI.
//
// k8crawler crawls seed websites for K-8 educational resources (tutoring,
// library programs, mentorship, cultural and community activities) and
// writes structured records to SQLite and NDJSON.
//
// Usage:
//
//	k8crawler init
//	k8crawler run --config k8crawler.yaml
//	k8crawler stop
//	k8crawler history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
