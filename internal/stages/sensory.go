// Package stages provides the built-in collaborator stages for the cognitive
// cycle: sensory processing, integration, the temporal/quantum/narrative
// context generators, theory generation, phenomenal-experience synthesis,
// self-reflection and behavior generation.
//
// The cycle orchestrator treats all of these as opaque collaborators behind
// the interfaces in pkg/cycle. Each stage draws randomness only from the
// *rand.Rand it was constructed with, so a whole run is reproducible from a
// single seed.
package stages

import (
	"math/rand"
	"sort"
	"time"

	"github.com/dyluth/noesis/pkg/cycle"
)

const (
	// sensoryBufferCap bounds each modality's retained percept history.
	sensoryBufferCap = 100

	// salienceAdmission is the minimum salience for a percept to survive
	// sensory filtering.
	salienceAdmission = 0.6
)

// SensoryProcessor filters raw multi-modal input into salient percepts.
// Unknown modalities are dropped; known ones are weighted and admitted only
// above the salience threshold.
type SensoryProcessor struct {
	rng     *rand.Rand
	weights map[string]float64
	buffers map[string][]cycle.Percept
}

// NewSensoryProcessor creates a sensory processor drawing salience noise from
// rng.
func NewSensoryProcessor(rng *rand.Rand) *SensoryProcessor {
	return &SensoryProcessor{
		rng: rng,
		weights: map[string]float64{
			"visual":         0.3,
			"auditory":       0.3,
			"proprioceptive": 0.2,
			"tactile":        0.2,
		},
		buffers: make(map[string][]cycle.Percept),
	}
}

// Process implements cycle.SensoryStage. Raw input is expected to be a
// modality -> data map; any other shape yields no percepts.
func (p *SensoryProcessor) Process(raw any) (map[string]cycle.Percept, error) {
	input, ok := raw.(map[string]any)
	if !ok {
		return map[string]cycle.Percept{}, nil
	}

	processed := make(map[string]cycle.Percept)
	for _, modality := range sortedKeys(input) {
		weight, known := p.weights[modality]
		if !known {
			continue
		}

		salience := p.salience(weight)
		if salience < salienceAdmission {
			continue
		}

		percept := cycle.Percept{
			Data:      input[modality],
			Salience:  salience,
			Timestamp: time.Now().UTC(),
		}
		processed[modality] = percept
		p.remember(modality, percept)
	}

	return processed, nil
}

// salience scores a modality. The modality weight biases an otherwise noisy
// score so heavily weighted channels clear admission more often.
func (p *SensoryProcessor) salience(weight float64) float64 {
	base := 0.4 + p.rng.Float64()*0.5
	s := base + weight
	if s > 1.0 {
		s = 1.0
	}
	return s
}

func (p *SensoryProcessor) remember(modality string, percept cycle.Percept) {
	buf := append(p.buffers[modality], percept)
	if len(buf) > sensoryBufferCap {
		buf = buf[len(buf)-sensoryBufferCap:]
	}
	p.buffers[modality] = buf
}

// BufferLen returns the retained percept count for a modality.
func (p *SensoryProcessor) BufferLen(modality string) int {
	return len(p.buffers[modality])
}

// sortedKeys returns the map's keys in sorted order. Stages iterate maps in
// sorted order wherever the iteration consumes randomness, so a fixed seed
// produces a fixed run.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
