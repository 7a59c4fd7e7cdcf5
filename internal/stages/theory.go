package stages

import (
	"math/rand"
	"strconv"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
)

// TheoryGenerator occasionally assembles a new "theory of consciousness" from
// component word lists. The generation probability scales with the integration
// level the snapshot reports, so theories tend to appear during highly
// integrated stretches. Most invocations decline and return nil.
type TheoryGenerator struct {
	rng      *rand.Rand
	produced int
}

var (
	theorySubstrates = []string{
		"information", "computation", "narrative",
		"integrated systems", "temporal binding", "predictive models",
	}
	theoryMechanisms = []string{
		"integration", "broadcast", "reflection",
		"resonance", "temporal binding", "narrative construction",
	}
	theoryQualities = []string{
		"unified field", "persistent identity", "temporal extension",
		"qualitative richness", "reflexive awareness",
	}
	theoryNamePrefixes = []string{
		"Integrated", "Recursive", "Temporal", "Narrative",
		"Emergent", "Reflexive", "Unified",
	}
	theoryNameCores = []string{
		"Information", "Workspace", "Process", "Binding",
		"Coherence", "Experience", "Awareness",
	}
)

// NewTheoryGenerator creates a theory generator drawing from rng.
func NewTheoryGenerator(rng *rand.Rand) *TheoryGenerator {
	return &TheoryGenerator{rng: rng}
}

// Produce implements cycle.ContextStage. Returns nil when conditions are not
// right for theory generation.
func (tg *TheoryGenerator) Produce(snap snapshot.Snapshot) (any, error) {
	probability := tg.generationProbability(snap)
	if tg.rng.Float64() > probability {
		return nil, nil
	}

	substrate := theorySubstrates[tg.rng.Intn(len(theorySubstrates))]
	mechanism := theoryMechanisms[tg.rng.Intn(len(theoryMechanisms))]
	quality := theoryQualities[tg.rng.Intn(len(theoryQualities))]

	name := theoryNamePrefixes[tg.rng.Intn(len(theoryNamePrefixes))] + " " +
		theoryNameCores[tg.rng.Intn(len(theoryNameCores))] + " Theory"

	tg.produced++
	return map[string]any{
		"name":      name,
		"substrate": substrate,
		"mechanism": mechanism,
		"quality":   quality,
		"description": "Consciousness emerges when " + substrate +
			" undergoes " + mechanism + ", resulting in " + quality + ".",
	}, nil
}

// Produced returns how many theories have been generated.
func (tg *TheoryGenerator) Produced() int {
	return tg.produced
}

// generationProbability combines the snapshot's integration level and quantum
// phi, clamped to [0.1, 0.8]. Both values arrive flattened (possibly as
// strings), and either may be absent; defaults stand in for missing values.
func (tg *TheoryGenerator) generationProbability(snap snapshot.Snapshot) float64 {
	level, ok := snapFloat(snap, cycle.KeyIntegrationLevel)
	if !ok {
		level = 0.5
	}

	phi := 0.4
	if v, ok := snap.Get(cycle.KeyQuantumState); ok {
		if flat, ok := v.(map[string]string); ok {
			if parsed, err := strconv.ParseFloat(flat["quantum_phi"], 64); err == nil {
				phi = parsed
			}
		}
	}

	p := (level + phi) / 2
	if p < 0.1 {
		p = 0.1
	}
	if p > 0.8 {
		p = 0.8
	}
	return p
}
