package crawler

import "errors"

var (
	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("crawl already started")

	// ErrNoSink is returned when an orchestrator has no sink.
	ErrNoSink = errors.New("no sink configured")

	// ErrSinkUnavailable is returned when the sink fails its startup ping.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrNoSeeds is returned when a run has no seeds.
	ErrNoSeeds = errors.New("no seeds")
)
