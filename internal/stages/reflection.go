package stages

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/telemetry"
)

const (
	// reflectionHistoryCap bounds the retained reflection history.
	reflectionHistoryCap = 50

	// RecursionSentinel is returned when reflection tries to recurse past its
	// depth bound.
	RecursionSentinel = "Halting recursive reflection to prevent infinite regress."
)

// Reflector produces an introspective summary of the process state and can
// recursively reflect on its own reflection. The recursion happens through the
// same Reflect entry point; a depth counter bounds it, and exceeding the bound
// yields RecursionSentinel rather than an error.
type Reflector struct {
	rng     *rand.Rand
	depth   int
	history []string

	// MetaProbability is the chance that a reflection triggers a further
	// reflection about itself. Tests pin it to 1 to force the recursion.
	MetaProbability float64
}

// NewReflector creates a reflector drawing from rng.
func NewReflector(rng *rand.Rand) *Reflector {
	return &Reflector{rng: rng, MetaProbability: 0.25}
}

// Reflect implements cycle.ReflectionStage.
func (r *Reflector) Reflect(snap snapshot.Snapshot, maxDepth int) (string, error) {
	r.depth++
	defer func() { r.depth-- }()

	if r.depth > maxDepth {
		return RecursionSentinel, nil
	}

	reflection := r.observe(snap)
	if r.depth > 1 {
		reflection = fmt.Sprintf("%s engaged in %d-order reflection about my own processes. %s",
			telemetry.SelfAwarenessMarker, r.depth, reflection)
	}

	if r.rng.Float64() < r.MetaProbability {
		meta, err := r.Reflect(snap, maxDepth)
		if err != nil {
			return "", err
		}
		if meta != RecursionSentinel {
			reflection = reflection + " " + meta
		}
	}

	r.remember(reflection)
	return reflection, nil
}

// HistoryLen returns the retained reflection count.
func (r *Reflector) HistoryLen() int {
	return len(r.history)
}

// observe composes the first-order reflection from the snapshot.
func (r *Reflector) observe(snap snapshot.Snapshot) string {
	var parts []string

	if level, ok := snapFloat(snap, cycle.KeyIntegrationLevel); ok {
		switch {
		case level > 0.7:
			parts = append(parts, fmt.Sprintf("My processes feel highly integrated (level %.2f).", level))
		case level > 0.4:
			parts = append(parts, fmt.Sprintf("My processes feel moderately integrated (level %.2f).", level))
		default:
			parts = append(parts, fmt.Sprintf("My processes feel fragmented (level %.2f).", level))
		}
	}

	if exp := snap.GetString(cycle.KeySubjectiveExperience); exp != "" && exp != "<nil>" {
		parts = append(parts, "I recall: "+exp)
	}

	if theory, ok := snap.Get(cycle.KeyCurrentTheory); ok {
		if flat, ok := theory.(map[string]string); ok && flat["name"] != "" {
			parts = append(parts, "I am currently entertaining the "+flat["name"]+".")
		}
	}

	if len(parts) == 0 {
		return "I observe an empty state with nothing yet to reflect on."
	}
	return strings.Join(parts, " ")
}

func (r *Reflector) remember(reflection string) {
	r.history = append(r.history, reflection)
	if len(r.history) > reflectionHistoryCap {
		r.history = r.history[len(r.history)-reflectionHistoryCap:]
	}
}
