package stages

import (
	"fmt"

	"github.com/dyluth/noesis/pkg/snapshot"
)

const (
	// learningRate is the per-sighting confidence increment for a pattern.
	learningRate = 0.1

	// insightConfidence is the confidence a pattern must reach before it is
	// promoted to an insight.
	insightConfidence = 0.5

	// patternLenCap skips free-text values whose renderings are too long to
	// ever recur as a pattern.
	patternLenCap = 48

	// insightHistoryCap bounds the retained insight list.
	insightHistoryCap = 50
)

// knowledgeEntry is the accumulated record for one observed pattern.
type knowledgeEntry struct {
	occurrences int
	confidence  float64
	promoted    bool
}

// Learner extracts recurring key:value patterns from the state snapshot and
// promotes sufficiently reinforced ones to insights. It is the only built-in
// stage with no randomness: it learns exactly what the snapshots show it.
type Learner struct {
	patternMemory map[string]float64
	knowledge     map[string]*knowledgeEntry
	insights      []string

	patternsLearned   int
	insightsGenerated int
}

// NewLearner creates an empty learner.
func NewLearner() *Learner {
	return &Learner{
		patternMemory: make(map[string]float64),
		knowledge:     make(map[string]*knowledgeEntry),
	}
}

// Produce implements cycle.ContextStage. Returns nil until at least one
// pattern has been observed.
func (l *Learner) Produce(snap snapshot.Snapshot) (any, error) {
	for _, key := range snap.Keys() {
		v, _ := snap.Get(key)
		rendered, ok := patternValue(v)
		if !ok {
			continue
		}

		pattern := key + ":" + rendered
		l.reinforce(pattern)
	}

	if len(l.patternMemory) == 0 {
		return nil, nil
	}

	out := map[string]any{
		"patterns_known":     len(l.patternMemory),
		"insights_generated": l.insightsGenerated,
	}
	if len(l.insights) > 0 {
		out["latest_insight"] = l.insights[len(l.insights)-1]
	}
	return out, nil
}

// reinforce bumps a pattern's confidence and promotes it to an insight the
// first time it clears the confidence threshold.
func (l *Learner) reinforce(pattern string) {
	if _, known := l.patternMemory[pattern]; !known {
		l.patternsLearned++
		l.knowledge[pattern] = &knowledgeEntry{}
	}

	confidence := l.patternMemory[pattern] + learningRate
	if confidence > 1.0 {
		confidence = 1.0
	}
	l.patternMemory[pattern] = confidence

	entry := l.knowledge[pattern]
	entry.occurrences++
	entry.confidence = confidence

	if confidence > insightConfidence && !entry.promoted {
		entry.promoted = true
		l.insightsGenerated++
		l.remember(fmt.Sprintf("recurring pattern %s (confidence %.1f)", pattern, confidence))
	}
}

func (l *Learner) remember(insight string) {
	l.insights = append(l.insights, insight)
	if len(l.insights) > insightHistoryCap {
		l.insights = l.insights[len(l.insights)-insightHistoryCap:]
	}
}

// PatternsKnown returns the number of distinct patterns seen so far.
func (l *Learner) PatternsKnown() int {
	return len(l.patternMemory)
}

// Confidence returns the learned confidence for a pattern, 0 if unseen.
func (l *Learner) Confidence(pattern string) float64 {
	return l.patternMemory[pattern]
}

// Insights returns a copy of the promoted insights, oldest first.
func (l *Learner) Insights() []string {
	out := make([]string, len(l.insights))
	copy(out, l.insights)
	return out
}

// patternValue renders a snapshot value for pattern matching. Only short
// scalar renderings qualify: containers and free text churn every cycle and
// would fill the memory with patterns that can never recur. Floats are
// bucketed to one decimal so nearby signal values count as the same pattern.
func patternValue(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		if len([]rune(n)) > patternLenCap {
			return "", false
		}
		return n, true
	case bool:
		return fmt.Sprintf("%t", n), true
	case int:
		return fmt.Sprintf("%d", n), true
	case float64:
		return fmt.Sprintf("%.1f", n), true
	default:
		return "", false
	}
}
