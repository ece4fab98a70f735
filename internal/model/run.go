package model

import "time"

// RunState is a state of the crawl orchestrator.
type RunState string

// Orchestrator states. A run moves Idle -> Running -> Draining -> Stopped,
// or from Idle to Failed when it cannot start.
const (
	StateIdle     RunState = "idle"
	StateRunning  RunState = "running"
	StateDraining RunState = "draining"
	StateFailed   RunState = "failed"
	StateStopped  RunState = "stopped"
)

// RunStats counts what happened during a run.
type RunStats struct {
	Dispatched   int64 `json:"dispatched"`
	Fetched      int64 `json:"fetched"`
	FetchFailed  int64 `json:"fetch_failed"`
	RobotsDenied int64 `json:"robots_denied"`
	Requeued     int64 `json:"requeued"`
	Links        int64 `json:"links"`
	Feeds        int64 `json:"feeds"`
	Extracted    int64 `json:"extracted"`
	Accepted     int64 `json:"accepted"`
	Rejected     int64 `json:"rejected"`
	Duplicates   int64 `json:"duplicates"`
	Written      int64 `json:"written"`
	SinkRetried  int64 `json:"sink_retried"`
	DeadLettered int64 `json:"dead_lettered"`

	// Categories counts written records per category.
	Categories map[Category]int64 `json:"categories,omitempty"`
}

// RunSummary describes one crawl run.
type RunSummary struct {
	ID         string    `json:"id"`
	State      RunState  `json:"state"`
	ConfigPath string    `json:"config_path,omitempty"`
	Seeds      int       `json:"seeds"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Error      string    `json:"error,omitempty"`
	Stats      RunStats  `json:"stats"`
}

// Duration returns how long the run took, or zero while it is running.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// DeadLetter is a record that could not be written to the sink.
type DeadLetter struct {
	RunID     string          `json:"run_id"`
	Record    CandidateRecord `json:"record"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}
