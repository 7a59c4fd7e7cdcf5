package cycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/workspace"
)

// Deterministic stage doubles. Each records its calls so tests can assert on
// ordering and on exactly what the orchestrator handed it.

type stubSensory struct {
	calls  int
	result map[string]Percept
	err    error
}

func (s *stubSensory) Process(raw any) (map[string]Percept, error) {
	s.calls++
	return s.result, s.err
}

type stubIntegration struct {
	calls      int
	candidates []workspace.Candidate
	signal     float64
	lastInput  map[string]Percept
	lastSnap   snapshot.Snapshot
	err        error
}

func (s *stubIntegration) Integrate(input map[string]Percept, snap snapshot.Snapshot) ([]workspace.Candidate, error) {
	s.calls++
	s.lastInput = input
	s.lastSnap = snap
	return s.candidates, s.err
}

func (s *stubIntegration) Signal() float64 { return s.signal }

type stubContext struct {
	calls  int
	result any
	err    error
}

func (s *stubContext) Produce(snap snapshot.Snapshot) (any, error) {
	s.calls++
	return s.result, s.err
}

type stubExperience struct {
	calls        int
	result       string
	lastContents map[string]any
	err          error
}

func (s *stubExperience) Simulate(contents map[string]any) (string, error) {
	s.calls++
	s.lastContents = contents
	return s.result, s.err
}

type stubReflection struct {
	calls    int
	result   string
	lastSnap snapshot.Snapshot
	maxDepth int
	err      error
	fn       func(snap snapshot.Snapshot, maxDepth int) (string, error)
}

func (s *stubReflection) Reflect(snap snapshot.Snapshot, maxDepth int) (string, error) {
	s.calls++
	s.lastSnap = snap
	s.maxDepth = maxDepth
	if s.fn != nil {
		return s.fn(snap, maxDepth)
	}
	return s.result, s.err
}

type stubBehavior struct {
	calls  int
	result Action
	err    error
}

func (s *stubBehavior) Generate(snap snapshot.Snapshot, input map[string]Percept) (Action, error) {
	s.calls++
	return s.result, s.err
}

type stubSet struct {
	sensory     *stubSensory
	integration *stubIntegration
	temporal    *stubContext
	quantum     *stubContext
	narrative   *stubContext
	learning    *stubContext
	theory      *stubContext
	experience  *stubExperience
	reflection  *stubReflection
	behavior    *stubBehavior
}

func newStubSet() *stubSet {
	return &stubSet{
		sensory: &stubSensory{result: map[string]Percept{
			"visual": {Data: "light", Salience: 0.7, Timestamp: time.Now()},
		}},
		integration: &stubIntegration{
			candidates: []workspace.Candidate{{ID: "visual", Content: "light", Attention: 0.9}},
			signal:     0.5,
		},
		temporal:   &stubContext{result: map[string]any{"retention": 1}},
		quantum:    &stubContext{result: map[string]any{"coherence": 0.4}},
		narrative:  &stubContext{result: map[string]any{"theme": "continuity"}},
		learning:   &stubContext{result: map[string]any{"patterns_known": 2}},
		theory:     &stubContext{result: map[string]any{"name": "Unified Field Theory"}},
		experience: &stubExperience{result: "experiencing light"},
		reflection: &stubReflection{result: "reflecting on the current state"},
		behavior:   &stubBehavior{result: Action{Type: "explore", Name: "investigate_environment"}},
	}
}

func (s *stubSet) stages() Stages {
	return Stages{
		Sensory:     s.sensory,
		Integration: s.integration,
		Temporal:    s.temporal,
		Quantum:     s.quantum,
		Narrative:   s.narrative,
		Learning:    s.learning,
		Theory:      s.theory,
		Experience:  s.experience,
		Reflection:  s.reflection,
		Behavior:    s.behavior,
	}
}

func newTestOrchestrator(t *testing.T, s *stubSet, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(s.stages(), opts)
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator(t *testing.T) {
	t.Run("rejects missing stage", func(t *testing.T) {
		s := newStubSet()
		stages := s.stages()
		stages.Quantum = nil

		_, err := NewOrchestrator(stages, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing quantum stage")
	})

	t.Run("applies defaults", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})
		assert.Equal(t, DefaultMaxReflectionDepth, o.maxDepth)
		assert.Equal(t, DefaultTheoryInterval, o.theoryInterval)
	})
}

func TestRunCycle(t *testing.T) {
	t.Run("returns reflection as summary", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		summary, err := o.RunCycle("stimulus")
		require.NoError(t, err)
		assert.Equal(t, "reflecting on the current state", summary)
		assert.Equal(t, 1, o.Cycles())
	})

	t.Run("invokes every stage exactly once", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle("stimulus")
		require.NoError(t, err)

		assert.Equal(t, 1, s.sensory.calls)
		assert.Equal(t, 1, s.integration.calls)
		assert.Equal(t, 1, s.temporal.calls)
		assert.Equal(t, 1, s.quantum.calls)
		assert.Equal(t, 1, s.narrative.calls)
		assert.Equal(t, 1, s.learning.calls)
		assert.Equal(t, 0, s.theory.calls) // only every Nth cycle
		assert.Equal(t, 1, s.experience.calls)
		assert.Equal(t, 1, s.reflection.calls)
		assert.Equal(t, 1, s.behavior.calls)
	})

	t.Run("skips sensory stage without external input", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, s.sensory.calls)
		assert.Nil(t, s.integration.lastInput)
	})

	t.Run("folds stage outputs under fixed keys", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle("stimulus")
		require.NoError(t, err)

		view := o.StateView()
		assert.Equal(t, 0.5, view[KeyIntegrationLevel])
		assert.Contains(t, view, KeyTemporalContext)
		assert.Contains(t, view, KeyQuantumState)
		assert.Contains(t, view, KeyNarrative)
		assert.Contains(t, view, KeyLearnedInsights)
		assert.NotContains(t, view, KeyCurrentTheory)
		assert.Equal(t, "experiencing light", view[KeySubjectiveExperience])
		assert.Contains(t, view, KeyLastAction)
	})

	t.Run("nil context output means no update", func(t *testing.T) {
		s := newStubSet()
		s.narrative.result = nil
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle(nil)
		require.NoError(t, err)
		assert.NotContains(t, o.StateView(), KeyNarrative)
	})

	t.Run("theory runs on every Nth cycle", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{TheoryInterval: 3})

		for i := 0; i < 7; i++ {
			_, err := o.RunCycle(nil)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, s.theory.calls) // cycles 3 and 6
		assert.Contains(t, o.StateView(), KeyCurrentTheory)
	})

	t.Run("reflection receives cycle-start snapshot", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle(nil)
		require.NoError(t, err)

		// The snapshot given to reflection must predate this cycle's updates:
		// the experience written in the same cycle is not visible.
		v, ok := s.reflection.lastSnap.Get(KeySubjectiveExperience)
		require.True(t, ok)
		assert.Nil(t, v)
		assert.Equal(t, DefaultMaxReflectionDepth, s.reflection.maxDepth)

		_, err = o.RunCycle(nil)
		require.NoError(t, err)

		// Next cycle's snapshot sees the previous cycle's experience.
		v, _ = s.reflection.lastSnap.Get(KeySubjectiveExperience)
		assert.Equal(t, "experiencing light", v)
	})

	t.Run("workspace size reaches telemetry", func(t *testing.T) {
		s := newStubSet()
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle(nil)
		require.NoError(t, err)

		obs, ok := o.Monitor().LastObservation()
		require.True(t, ok)
		assert.Equal(t, 1, obs.WorkspaceSize)
		assert.Equal(t, 0.5, obs.Signal)
	})
}

func TestRunCycleErrorPropagation(t *testing.T) {
	stageErr := errors.New("stage exploded")

	t.Run("integration error aborts cycle", func(t *testing.T) {
		s := newStubSet()
		s.integration.err = stageErr
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle("stimulus")
		require.Error(t, err)
		assert.ErrorIs(t, err, stageErr)
		assert.Contains(t, err.Error(), "integration stage")

		// Later stages never ran.
		assert.Equal(t, 0, s.experience.calls)
		assert.Equal(t, 0, s.behavior.calls)
	})

	t.Run("behavior error leaves earlier updates committed", func(t *testing.T) {
		s := newStubSet()
		s.behavior.err = stageErr
		o := newTestOrchestrator(t, s, Options{})

		_, err := o.RunCycle(nil)
		require.Error(t, err)

		// Partial commit is documented behavior: earlier folds stay.
		view := o.StateView()
		assert.Equal(t, "experiencing light", view[KeySubjectiveExperience])
		assert.NotContains(t, view, KeyLastAction)
	})
}

func TestRunCycleNotReentrant(t *testing.T) {
	s := newStubSet()
	var o *Orchestrator
	var nestedErr error
	s.reflection.fn = func(snap snapshot.Snapshot, maxDepth int) (string, error) {
		_, nestedErr = o.RunCycle(nil)
		return "outer reflection", nil
	}
	o = newTestOrchestrator(t, s, Options{})

	summary, err := o.RunCycle(nil)
	require.NoError(t, err)
	assert.Equal(t, "outer reflection", summary)
	assert.ErrorIs(t, nestedErr, ErrCycleRunning)
	assert.Equal(t, 1, o.Cycles())
}

func TestStateViewDoesNotMutate(t *testing.T) {
	s := newStubSet()
	o := newTestOrchestrator(t, s, Options{})

	_, err := o.RunCycle(nil)
	require.NoError(t, err)

	view := o.StateView()
	view[KeyIntegrationLevel] = 99.0
	delete(view, KeySubjectiveExperience)

	fresh := o.StateView()
	assert.Equal(t, 0.5, fresh[KeyIntegrationLevel])
	assert.Contains(t, fresh, KeySubjectiveExperience)
}

func TestSpotlight(t *testing.T) {
	s := newStubSet()
	o := newTestOrchestrator(t, s, Options{})

	_, err := o.RunCycle(nil)
	require.NoError(t, err)
	assert.Equal(t, "light", o.Spotlight())
}
