package stages

import (
	"math/rand"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
)

// behaviorHistoryCap bounds the retained action history.
const behaviorHistoryCap = 100

// candidateAction is one entry in the behavior repertoire.
type candidateAction struct {
	actionType string
	name       string
}

// BehaviorGenerator scores a small repertoire of candidate actions against the
// current state and percepts and emits the winner.
type BehaviorGenerator struct {
	rng        *rand.Rand
	repertoire []candidateAction
	history    []cycle.Action
}

// NewBehaviorGenerator creates a behavior generator drawing from rng.
func NewBehaviorGenerator(rng *rand.Rand) *BehaviorGenerator {
	return &BehaviorGenerator{
		rng: rng,
		repertoire: []candidateAction{
			{"explore", "investigate_environment"},
			{"respond", "react_to_stimulus"},
			{"learn", "consolidate_experience"},
			{"rest", "idle_observation"},
		},
	}
}

// Generate implements cycle.BehaviorStage.
func (bg *BehaviorGenerator) Generate(snap snapshot.Snapshot, input map[string]cycle.Percept) (cycle.Action, error) {
	best := bg.repertoire[0]
	bestScore := -1.0
	for _, candidate := range bg.repertoire {
		score := bg.score(candidate, snap, input)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	action := cycle.Action{
		Type: best.actionType,
		Name: best.name,
		Parameters: map[string]any{
			"score":    bestScore,
			"percepts": len(input),
		},
	}
	bg.remember(action)
	return action, nil
}

// HistoryLen returns the retained action count.
func (bg *BehaviorGenerator) HistoryLen() int {
	return len(bg.history)
}

// score rates a candidate. A noisy base keeps choices varied; the bonuses bias
// responding when stimuli are present, learning when integration is high, and
// resting when both are low.
func (bg *BehaviorGenerator) score(candidate candidateAction, snap snapshot.Snapshot, input map[string]cycle.Percept) float64 {
	score := 0.3 + bg.rng.Float64()*0.4

	level, _ := snapFloat(snap, cycle.KeyIntegrationLevel)
	switch candidate.actionType {
	case "respond":
		score += 0.15 * float64(len(input))
	case "learn":
		if level > 0.6 {
			score += 0.2
		}
	case "rest":
		if level < 0.3 && len(input) == 0 {
			score += 0.25
		}
	}
	return score
}

func (bg *BehaviorGenerator) remember(action cycle.Action) {
	bg.history = append(bg.history, action)
	if len(bg.history) > behaviorHistoryCap {
		bg.history = bg.history[len(bg.history)-behaviorHistoryCap:]
	}
}
