package cycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/telemetry"
	"github.com/dyluth/noesis/pkg/workspace"
)

// ErrCycleRunning is returned when RunCycle is invoked re-entrantly. Cycles
// are strictly sequential; concurrent callers must serialize access
// externally.
var ErrCycleRunning = errors.New("cycle already running")

// Fixed process-state keys written by the orchestrator. Stages see these in
// every snapshot.
const (
	KeyIntegrationLevel     = "integration_level"
	KeyTemporalContext      = "temporal_context"
	KeyQuantumState         = "quantum_state"
	KeyNarrative            = "narrative"
	KeyLearnedInsights      = "learned_insights"
	KeyCurrentTheory        = "current_theory"
	KeySubjectiveExperience = "subjective_experience"
	KeyLastAction           = "last_action"
)

const (
	// DefaultMaxReflectionDepth is the reflection recursion ceiling handed to
	// the reflection stage.
	DefaultMaxReflectionDepth = 3

	// DefaultTheoryInterval runs the theory stage every Nth cycle.
	DefaultTheoryInterval = 100

	// highSalienceThreshold is the salience above which an input modality is
	// logged (never failed) during sensory processing.
	highSalienceThreshold = 0.8
)

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	WorkspaceCapacity  int
	AttentionThreshold float64
	MaxScalarLen       int
	MaxReflectionDepth int
	TheoryInterval     int
	Telemetry          telemetry.Options
}

// Orchestrator drives the cognitive cycle. It has exactly two states: idle
// between cycles, and running while RunCycle is in flight. It is
// single-threaded by design and provides no internal locking.
type Orchestrator struct {
	stages      Stages
	state       *snapshot.State
	snapshotter *snapshot.Snapshotter
	buffer      *workspace.Buffer
	monitor     *telemetry.Monitor

	cycles         int
	running        bool
	maxDepth       int
	theoryInterval int
}

// NewOrchestrator creates an orchestrator around the given stages.
func NewOrchestrator(stages Stages, opts Options) (*Orchestrator, error) {
	if err := stages.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stages: %w", err)
	}

	if opts.WorkspaceCapacity < 1 {
		opts.WorkspaceCapacity = workspace.DefaultCapacity
	}
	if opts.AttentionThreshold <= 0 {
		opts.AttentionThreshold = workspace.DefaultAttentionThreshold
	}
	if opts.MaxReflectionDepth < 1 {
		opts.MaxReflectionDepth = DefaultMaxReflectionDepth
	}
	if opts.TheoryInterval < 1 {
		opts.TheoryInterval = DefaultTheoryInterval
	}

	buffer, err := workspace.New(opts.WorkspaceCapacity, opts.AttentionThreshold)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		stages:         stages,
		state:          snapshot.NewState(),
		snapshotter:    snapshot.NewSnapshotter(opts.MaxScalarLen),
		buffer:         buffer,
		monitor:        telemetry.NewMonitor(opts.Telemetry),
		maxDepth:       opts.MaxReflectionDepth,
		theoryInterval: opts.TheoryInterval,
	}
	o.state.Set(KeySubjectiveExperience, nil)
	return o, nil
}

// RunCycle executes one cognitive cycle and returns the reflection string as
// the cycle summary.
//
// Stage errors are not suppressed: the first failing stage aborts the cycle
// and its error propagates. State updates are applied incrementally, so after
// a failed cycle the process state may be partially updated; callers should
// re-snapshot before trusting it.
//
// RunCycle must not be invoked re-entrantly; doing so returns ErrCycleRunning.
func (o *Orchestrator) RunCycle(externalInput any) (string, error) {
	if o.running {
		return "", ErrCycleRunning
	}
	o.running = true
	defer func() { o.running = false }()

	o.cycles++
	start := time.Now()

	// 1. Sensory processing. High salience is logged, never failed.
	var processed map[string]Percept
	if externalInput != nil {
		var err error
		processed, err = o.stages.Sensory.Process(externalInput)
		if err != nil {
			return "", fmt.Errorf("sensory stage: %w", err)
		}
		for modality, p := range processed {
			if p.Salience > highSalienceThreshold {
				log.Printf("[Cycle] High salience input on %s: %.2f", modality, p.Salience)
			}
		}
	}

	// 2. One snapshot per cycle. Every stage below sees the state as of this
	// point; none sees the updates the cycle itself applies.
	snap := o.snapshotter.Take(o.state)

	// 3. Integration produces broadcast candidates and the cycle's signal.
	candidates, err := o.stages.Integration.Integrate(processed, snap)
	if err != nil {
		return "", fmt.Errorf("integration stage: %w", err)
	}
	signal := o.stages.Integration.Signal()
	o.state.Set(KeyIntegrationLevel, signal)

	// 4. Context stages, fixed order, each folded under a fixed key.
	contextStages := []struct {
		key   string
		stage ContextStage
		name  string
	}{
		{KeyTemporalContext, o.stages.Temporal, "temporal"},
		{KeyQuantumState, o.stages.Quantum, "quantum"},
		{KeyNarrative, o.stages.Narrative, "narrative"},
		{KeyLearnedInsights, o.stages.Learning, "learning"},
	}
	for _, cs := range contextStages {
		v, err := cs.stage.Produce(snap)
		if err != nil {
			return "", fmt.Errorf("%s stage: %w", cs.name, err)
		}
		if v != nil {
			o.state.Set(cs.key, v)
		}
	}

	// 5. Theory generation on every Nth cycle only; may decline to produce.
	if o.cycles%o.theoryInterval == 0 {
		v, err := o.stages.Theory.Produce(snap)
		if err != nil {
			return "", fmt.Errorf("theory stage: %w", err)
		}
		if v != nil {
			o.state.Set(KeyCurrentTheory, v)
		}
	}

	// 6. Broadcast and experience synthesis.
	o.buffer.Broadcast(candidates)
	contents := o.buffer.Contents()

	experience, err := o.stages.Experience.Simulate(contents)
	if err != nil {
		return "", fmt.Errorf("experience stage: %w", err)
	}
	o.state.Set(KeySubjectiveExperience, experience)

	// 7. Self-reflection on the snapshot, never the live state: a reflection
	// that serialized "the current state" would recurse into its own
	// in-progress update.
	reflection, err := o.stages.Reflection.Reflect(snap, o.maxDepth)
	if err != nil {
		return "", fmt.Errorf("reflection stage: %w", err)
	}

	// 8. Telemetry observes the cycle.
	obs := o.monitor.Observe(o.cycles, reflection, signal, len(contents))

	// 9. Behavior generation closes the cycle.
	action, err := o.stages.Behavior.Generate(snap, processed)
	if err != nil {
		return "", fmt.Errorf("behavior stage: %w", err)
	}
	o.state.Set(KeyLastAction, action)

	o.logEvent("cycle_complete", map[string]interface{}{
		"cycle":          o.cycles,
		"observation_id": obs.ID,
		"signal":         signal,
		"workspace_size": len(contents),
		"latency_ms":     time.Since(start).Milliseconds(),
	})

	return reflection, nil
}

// Cycles returns the number of cycles started so far.
func (o *Orchestrator) Cycles() int {
	return o.cycles
}

// StateView returns a bounded, acyclic copy of the process state for
// presentation layers to poll. Mutating the returned map cannot touch the
// live state.
func (o *Orchestrator) StateView() map[string]any {
	return o.snapshotter.View(o.state)
}

// Spotlight returns the current primary broadcast.
func (o *Orchestrator) Spotlight() any {
	return o.buffer.Spotlight()
}

// Monitor exposes the telemetry monitor for reporting.
func (o *Orchestrator) Monitor() *telemetry.Monitor {
	return o.monitor
}

// Report renders the cumulative telemetry report.
func (o *Orchestrator) Report() string {
	return o.monitor.GenerateReport()
}

// logEvent logs a structured event in JSON format.
func (o *Orchestrator) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "cycle"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Cycle] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
