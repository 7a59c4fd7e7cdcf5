package stages

import (
	"fmt"
	"math/rand"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/workspace"
)

// Integrator folds percepts and the state snapshot into broadcast candidates
// and maintains the scalar integration signal the telemetry monitor tracks.
//
// The signal is an opaque heuristic, not a grounded information-theoretic
// measure: it rises with the breadth of concurrent percepts and the richness
// of the state, decays toward a baseline when input dries up, and carries a
// little noise.
type Integrator struct {
	rng    *rand.Rand
	signal float64
}

// NewIntegrator creates an integrator drawing noise from rng.
func NewIntegrator(rng *rand.Rand) *Integrator {
	return &Integrator{rng: rng, signal: 0.5}
}

// Integrate implements cycle.IntegrationStage.
func (in *Integrator) Integrate(input map[string]cycle.Percept, snap snapshot.Snapshot) ([]workspace.Candidate, error) {
	var candidates []workspace.Candidate

	// Percepts compete for broadcast with their salience as attention.
	for _, modality := range sortedKeys(input) {
		percept := input[modality]
		candidates = append(candidates, workspace.Candidate{
			ID:        "sensory:" + modality,
			Content:   percept.Data,
			Attention: percept.Salience,
		})
	}

	// The previous cycle's experience re-enters the competition with decayed
	// attention, letting a vivid experience linger in the workspace.
	if exp, ok := snap.Get(cycle.KeySubjectiveExperience); ok && exp != nil {
		candidates = append(candidates, workspace.Candidate{
			ID:        "experience",
			Content:   fmt.Sprintf("%v", exp),
			Attention: in.signal * 0.9,
		})
	}

	in.updateSignal(len(input), snap.Len())
	return candidates, nil
}

// Signal implements cycle.IntegrationStage.
func (in *Integrator) Signal() float64 {
	return in.signal
}

// updateSignal nudges the signal toward a target implied by current breadth,
// with bounded noise. Kept in [0, 1].
func (in *Integrator) updateSignal(perceptCount, stateSize int) {
	target := 0.3 + 0.1*float64(perceptCount) + 0.04*float64(stateSize)
	if target > 1.0 {
		target = 1.0
	}

	in.signal += (target - in.signal) * 0.3
	in.signal += (in.rng.Float64() - 0.5) * 0.08

	if in.signal < 0 {
		in.signal = 0
	}
	if in.signal > 1 {
		in.signal = 1
	}
}
