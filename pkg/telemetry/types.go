// Package telemetry implements the introspective monitor that watches the
// scalar integration signal across cognitive cycles. It maintains sliding
// window statistics, detects signal anomalies and sustained-stability
// periods, tracks one-way emergent flags, and renders a cumulative report.
package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnomalyKind classifies a detected anomaly.
type AnomalyKind string

const (
	// AnomalySignalShift marks a signal value more than three standard
	// deviations away from the recent mean.
	AnomalySignalShift AnomalyKind = "signal_shift"

	// AnomalyExtendedStability marks a sustained near-zero-variance period.
	AnomalyExtendedStability AnomalyKind = "extended_stability"
)

// Validate checks if the AnomalyKind is a valid enum value.
func (k AnomalyKind) Validate() error {
	switch k {
	case AnomalySignalShift, AnomalyExtendedStability:
		return nil
	default:
		return fmt.Errorf("unknown anomaly kind: %q", k)
	}
}

// Anomaly is a single detected anomaly. Anomalies are append-only; reports
// surface the last five.
type Anomaly struct {
	Cycle       int         `json:"cycle"`
	Kind        AnomalyKind `json:"kind"`
	Description string      `json:"description"`
}

// Observation records one monitored cycle. Observations accumulate in an
// unbounded log used for the report's all-time aggregates; live statistics
// come from the bounded sliding window instead.
type Observation struct {
	ID            string    `json:"id"` // UUID
	Cycle         int       `json:"cycle"`
	Timestamp     time.Time `json:"timestamp"`
	Summary       string    `json:"summary"`
	Signal        float64   `json:"signal"`
	WorkspaceSize int       `json:"workspace_size"`
}

// Validate checks if the Observation has valid field values.
func (o *Observation) Validate() error {
	if _, err := uuid.Parse(o.ID); err != nil {
		return fmt.Errorf("invalid observation ID: not a valid UUID")
	}
	if o.Cycle < 1 {
		return fmt.Errorf("invalid cycle: must be >= 1, got %d", o.Cycle)
	}
	return nil
}

// Emergent flag tags. Flags are monotonic: once raised they are never removed
// for the lifetime of the monitor.
const (
	// FlagStableIntegration is raised when the mean signal over recent
	// observations stays above the high-integration threshold.
	FlagStableIntegration = "stable_integration"

	// FlagSelfAwareness is raised when a cycle summary contains the
	// self-referential marker phrase.
	FlagSelfAwareness = "self_awareness"
)

// SelfAwarenessMarker is the phrase in a cycle summary that raises
// FlagSelfAwareness. It is produced by meta-reflection in the reflection
// stage.
const SelfAwarenessMarker = "I notice I am"
