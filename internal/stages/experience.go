package stages

import (
	"fmt"
	"math/rand"
	"strings"
)

// experienceMemoryCap bounds the retained experience history.
const experienceMemoryCap = 100

// qualiaRule maps workspace content onto a phenomenal dimension. Rules are
// matched against the broadcast entry IDs in order, first match wins.
type qualiaRule struct {
	idFragment string
	dimension  string
}

// ExperienceSynthesizer turns the broadcast workspace contents into a short
// first-person description of "what it is like" this cycle.
type ExperienceSynthesizer struct {
	rng    *rand.Rand
	rules  []qualiaRule
	memory []string
}

// NewExperienceSynthesizer creates an experience synthesizer.
func NewExperienceSynthesizer(rng *rand.Rand) *ExperienceSynthesizer {
	return &ExperienceSynthesizer{
		rng: rng,
		rules: []qualiaRule{
			{"sensory:visual", "visual"},
			{"sensory:auditory", "auditory"},
			{"sensory:proprioceptive", "bodily"},
			{"sensory:tactile", "tactile"},
			{"sensory", "perceptual"},
			{"experience", "reflective"},
		},
	}
}

// Simulate implements cycle.ExperienceStage.
func (es *ExperienceSynthesizer) Simulate(contents map[string]any) (string, error) {
	if len(contents) == 0 {
		return "No significant phenomenal experience.", nil
	}

	var parts []string
	for _, id := range sortedKeys(contents) {
		dimension := es.dimensionFor(id)
		if dimension == "" {
			continue
		}

		intensity := "moderately"
		if es.rng.Float64() > 0.5 {
			intensity = "strongly"
		}
		parts = append(parts, fmt.Sprintf("%s experiencing %v in the %s dimension",
			intensity, contents[id], dimension))
	}

	if len(parts) == 0 {
		return "No significant phenomenal experience.", nil
	}

	experience := "I am " + strings.Join(parts, "; ") + "."
	es.remember(experience)
	return experience, nil
}

// MemoryLen returns the retained experience count.
func (es *ExperienceSynthesizer) MemoryLen() int {
	return len(es.memory)
}

func (es *ExperienceSynthesizer) dimensionFor(id string) string {
	for _, rule := range es.rules {
		if strings.Contains(id, rule.idFragment) {
			return rule.dimension
		}
	}
	return "cognitive"
}

func (es *ExperienceSynthesizer) remember(experience string) {
	es.memory = append(es.memory, experience)
	if len(es.memory) > experienceMemoryCap {
		es.memory = es.memory[len(es.memory)-experienceMemoryCap:]
	}
}
