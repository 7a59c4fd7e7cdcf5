// Package cycle implements the cognitive cycle orchestrator. The orchestrator
// owns the process state, drives the pluggable stages through a fixed order
// each cycle, and hands every stage a bounded snapshot rather than the live
// state, so no stage can observe another stage's half-applied update or store
// a reference back into the state it was shown.
package cycle

import (
	"fmt"
	"time"

	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/workspace"
)

// Percept is one processed sensory channel for the current cycle.
type Percept struct {
	Data      any
	Salience  float64 // in [0, 1]
	Timestamp time.Time
}

// Action is the structured record produced by the behavior stage.
type Action struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// SensoryStage turns raw external input into per-modality percepts.
type SensoryStage interface {
	Process(raw any) (map[string]Percept, error)
}

// IntegrationStage folds percepts and the state snapshot into broadcast
// candidates, and exposes the scalar integration signal the telemetry monitor
// tracks. Signal must be cheap and side-effect free; it is read after
// Integrate within the same cycle.
type IntegrationStage interface {
	Integrate(input map[string]Percept, snap snapshot.Snapshot) ([]workspace.Candidate, error)
	Signal() float64
}

// ContextStage produces an optional state contribution from the snapshot.
// Returning (nil, nil) means "no update this cycle". The temporal, quantum,
// narrative, learning and theory stages all implement this shape.
type ContextStage interface {
	Produce(snap snapshot.Snapshot) (any, error)
}

// ExperienceStage synthesises a textual experience description from the
// workspace contents.
type ExperienceStage interface {
	Simulate(contents map[string]any) (string, error)
}

// ReflectionStage produces the cycle summary from the state snapshot.
//
// Contract: implementations must bound their own recursion. Past maxDepth
// levels of self-reflection they return a designated sentinel string - they
// never recurse unboundedly and never report depth exhaustion as an error.
// The orchestrator relies on this to keep reflection-on-reflection finite.
type ReflectionStage interface {
	Reflect(snap snapshot.Snapshot, maxDepth int) (string, error)
}

// BehaviorStage selects an action from the snapshot and the cycle's percepts.
type BehaviorStage interface {
	Generate(snap snapshot.Snapshot, input map[string]Percept) (Action, error)
}

// Stages bundles the collaborator stages an orchestrator drives. All fields
// are required.
type Stages struct {
	Sensory     SensoryStage
	Integration IntegrationStage
	Temporal    ContextStage
	Quantum     ContextStage
	Narrative   ContextStage
	Learning    ContextStage
	Theory      ContextStage
	Experience  ExperienceStage
	Reflection  ReflectionStage
	Behavior    BehaviorStage
}

// Validate checks that every stage is present.
func (s *Stages) Validate() error {
	missing := ""
	switch {
	case s.Sensory == nil:
		missing = "sensory"
	case s.Integration == nil:
		missing = "integration"
	case s.Temporal == nil:
		missing = "temporal"
	case s.Quantum == nil:
		missing = "quantum"
	case s.Narrative == nil:
		missing = "narrative"
	case s.Learning == nil:
		missing = "learning"
	case s.Theory == nil:
		missing = "theory"
	case s.Experience == nil:
		missing = "experience"
	case s.Reflection == nil:
		missing = "reflection"
	case s.Behavior == nil:
		missing = "behavior"
	}
	if missing != "" {
		return fmt.Errorf("missing %s stage", missing)
	}
	return nil
}
