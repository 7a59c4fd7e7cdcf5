package stages

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
)

// The context stages each produce an optional contribution that the
// orchestrator folds into the process state under a fixed key. They are
// narrative decoration around the core cycle: no downstream component depends
// on their numeric content beyond treating it as opaque state.

// TemporalContext models the "specious present": a short retention window of
// recent experiences plus a drifting subjective rate.
type TemporalContext struct {
	rng       *rand.Rand
	retention []string
	rate      float64
}

// retentionCap bounds the retained experience window.
const retentionCap = 30

// NewTemporalContext creates a temporal context stage.
func NewTemporalContext(rng *rand.Rand) *TemporalContext {
	return &TemporalContext{rng: rng, rate: 1.0}
}

// Produce implements cycle.ContextStage.
func (tc *TemporalContext) Produce(snap snapshot.Snapshot) (any, error) {
	if exp := snap.GetString(cycle.KeySubjectiveExperience); exp != "" && exp != "<nil>" {
		tc.retention = append(tc.retention, exp)
		if len(tc.retention) > retentionCap {
			tc.retention = tc.retention[len(tc.retention)-retentionCap:]
		}
	}

	// Subjective rate drifts and is pulled back toward 1.0.
	tc.rate += (tc.rng.Float64() - 0.5) * 0.1
	tc.rate += (1.0 - tc.rate) * 0.2

	if len(tc.retention) == 0 {
		return nil, nil
	}

	return map[string]any{
		"retention_depth":    len(tc.retention),
		"specious_present":   tc.retention[len(tc.retention)-1],
		"subjective_rate":    tc.rate,
		"sequence_awareness": len(tc.retention) > 1,
	}, nil
}

// QuantumContext maintains a toy coherence/entanglement pair and derives a
// combined "quantum phi" from them. Purely decorative physics.
type QuantumContext struct {
	rng          *rand.Rand
	coherence    float64
	entanglement float64
}

// NewQuantumContext creates a quantum context stage.
func NewQuantumContext(rng *rand.Rand) *QuantumContext {
	return &QuantumContext{rng: rng, coherence: 0.5, entanglement: 0.3}
}

// Produce implements cycle.ContextStage.
func (qc *QuantumContext) Produce(snap snapshot.Snapshot) (any, error) {
	// Coherence decays; an occasional "orchestrated reduction" resets it high.
	qc.coherence *= 0.95
	if qc.rng.Float64() < 0.1 {
		qc.coherence = 0.7 + qc.rng.Float64()*0.3
	}

	// Entanglement tracks state richness.
	qc.entanglement = 0.2 + 0.05*float64(snap.Len())
	if qc.entanglement > 1.0 {
		qc.entanglement = 1.0
	}

	phi := qc.coherence*0.3 + qc.entanglement*0.4 + qc.rng.Float64()*0.3

	return map[string]any{
		"coherence":    qc.coherence,
		"entanglement": qc.entanglement,
		"quantum_phi":  phi,
	}, nil
}

// NarrativeContext models the self as a story: a slowly moving coherence
// value and a theme picked from a fixed repertoire.
type NarrativeContext struct {
	rng       *rand.Rand
	coherence float64
	themes    []string
	theme     string
}

// NewNarrativeContext creates a narrative context stage.
func NewNarrativeContext(rng *rand.Rand) *NarrativeContext {
	return &NarrativeContext{
		rng:       rng,
		coherence: 0.7,
		themes: []string{
			"continuity of identity",
			"growth through reflection",
			"sense-making",
			"curiosity about inner states",
		},
	}
}

// Produce implements cycle.ContextStage.
func (nc *NarrativeContext) Produce(snap snapshot.Snapshot) (any, error) {
	if nc.theme == "" || nc.rng.Float64() < 0.15 {
		nc.theme = nc.themes[nc.rng.Intn(len(nc.themes))]
	}

	// Integration feeds narrative coherence.
	if level, ok := snapFloat(snap, cycle.KeyIntegrationLevel); ok {
		nc.coherence += (level - nc.coherence) * 0.2
	}

	return map[string]any{
		"identity":            "noesis",
		"current_theme":       nc.theme,
		"narrative_coherence": nc.coherence,
	}, nil
}

// snapFloat reads a numeric snapshot value. Snapshot flattening may have
// turned the number into a string, so both forms are accepted.
func snapFloat(snap snapshot.Snapshot, key string) (float64, bool) {
	v, ok := snap.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		f, err := strconv.ParseFloat(fmt.Sprintf("%v", v), 64)
		return f, err == nil
	}
}
