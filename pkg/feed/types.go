package feed

import "fmt"

// CycleEvent is the wire record published after every completed cognitive
// cycle. It carries the cycle's introspective summary plus the telemetry the
// monitor attached to it, serialized as JSON on the cycle events channel.
type CycleEvent struct {
	// RunID identifies the engine run this event belongs to (UUID).
	RunID string `json:"run_id"`

	// ObservationID is the UUID of the telemetry observation for this cycle.
	ObservationID string `json:"observation_id"`

	// Cycle is the 1-based cycle counter.
	Cycle int `json:"cycle"`

	// Summary is the reflection produced by this cycle.
	Summary string `json:"summary"`

	// Signal is the integration signal at the end of the cycle.
	Signal float64 `json:"signal"`

	// WorkspaceSize is the number of distinct broadcast entries in the
	// workspace after this cycle.
	WorkspaceSize int `json:"workspace_size"`

	// EmergentFlags lists the emergent property flags raised so far.
	EmergentFlags []string `json:"emergent_flags,omitempty"`

	// AnomalyCount is the total number of anomalies detected so far.
	AnomalyCount int `json:"anomaly_count"`

	// TimestampMs is the event time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp_ms"`
}

// Validate checks that the event is well-formed for publication.
func (e *CycleEvent) Validate() error {
	if e.RunID == "" {
		return fmt.Errorf("run_id cannot be empty")
	}
	if e.ObservationID == "" {
		return fmt.Errorf("observation_id cannot be empty")
	}
	if e.Cycle < 1 {
		return fmt.Errorf("cycle must be >= 1, got %d", e.Cycle)
	}
	if e.Signal < 0 || e.Signal > 1 {
		return fmt.Errorf("signal must be in [0, 1], got %f", e.Signal)
	}
	if e.WorkspaceSize < 0 {
		return fmt.Errorf("workspace_size cannot be negative")
	}
	if e.TimestampMs <= 0 {
		return fmt.Errorf("timestamp_ms must be positive")
	}
	return nil
}
