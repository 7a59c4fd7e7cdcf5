package telemetry

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Monitor defaults. Overridable through Options, primarily for tests.
const (
	// DefaultWindowSize is the capacity of the sliding signal window.
	DefaultWindowSize = 100

	// DefaultShiftSample is how many recent values feed the 3-sigma
	// signal-shift check.
	DefaultShiftSample = 20

	// DefaultStabilitySample is how many recent values feed the
	// extended-stability check.
	DefaultStabilitySample = 50

	// DefaultStabilityStdDev is the stddev ceiling below which the signal
	// counts as stable.
	DefaultStabilityStdDev = 0.01

	// DefaultStabilityCooldown is the number of cycles that must pass after
	// an extended-stability anomaly before another may be recorded.
	DefaultStabilityCooldown = 100

	// DefaultEmergentSample is how many recent observations feed the
	// stable-integration check.
	DefaultEmergentSample = 10

	// DefaultHighIntegration is the mean-signal threshold for the
	// stable-integration flag and for the report's closing assessment.
	DefaultHighIntegration = 0.7
)

// Options tunes a Monitor. Zero values select the defaults.
type Options struct {
	WindowSize        int
	ShiftSample       int
	StabilitySample   int
	StabilityStdDev   float64
	StabilityCooldown int
	EmergentSample    int
	HighIntegration   float64
}

func (o Options) withDefaults() Options {
	if o.WindowSize < 1 {
		o.WindowSize = DefaultWindowSize
	}
	if o.ShiftSample < 1 {
		o.ShiftSample = DefaultShiftSample
	}
	if o.StabilitySample < 1 {
		o.StabilitySample = DefaultStabilitySample
	}
	if o.StabilityStdDev <= 0 {
		o.StabilityStdDev = DefaultStabilityStdDev
	}
	if o.StabilityCooldown < 1 {
		o.StabilityCooldown = DefaultStabilityCooldown
	}
	if o.EmergentSample < 1 {
		o.EmergentSample = DefaultEmergentSample
	}
	if o.HighIntegration <= 0 {
		o.HighIntegration = DefaultHighIntegration
	}
	return o
}

// Monitor watches the integration signal across cycles. It is owned by a
// single orchestrator and is not safe for concurrent use.
type Monitor struct {
	opts Options

	observations []Observation // unbounded log, report aggregates only
	window       []float64     // sliding window, live statistics only
	anomalies    []Anomaly
	flags        []string            // insertion order, for deterministic reports
	flagSet      map[string]struct{} // idempotence
	lastStable   int                 // cycle of last extended-stability anomaly, -1 if none
}

// NewMonitor creates a monitor with the given options (zero Options selects
// all defaults).
func NewMonitor(opts Options) *Monitor {
	return &Monitor{
		opts:       opts.withDefaults(),
		flagSet:    make(map[string]struct{}),
		lastStable: -1,
	}
}

// Observe records one cycle and runs anomaly, stability and emergent-property
// detection. It returns the recorded observation.
func (m *Monitor) Observe(cycle int, summary string, signal float64, workspaceSize int) Observation {
	obs := Observation{
		ID:            uuid.New().String(),
		Cycle:         cycle,
		Timestamp:     time.Now().UTC(),
		Summary:       summary,
		Signal:        signal,
		WorkspaceSize: workspaceSize,
	}

	m.detectSignalShift(cycle, signal)
	m.pushWindow(signal)
	m.detectStability(cycle)

	m.observations = append(m.observations, obs)
	m.checkEmergentProperties(obs)

	return obs
}

// detectSignalShift compares the incoming signal against the mean and
// standard deviation of the most recent ShiftSample window values. The check
// runs before the new value enters the window, and only once the window holds
// a full sample. The 3-sigma threshold adapts to the signal's own volatility,
// so noisy periods do not flood the anomaly log the way a flat delta would.
func (m *Monitor) detectSignalShift(cycle int, signal float64) {
	if len(m.window) < m.opts.ShiftSample {
		return
	}
	sample := m.window[len(m.window)-m.opts.ShiftSample:]
	mean, stddev := meanStdDev(sample)

	if math.Abs(signal-mean) > 3*stddev {
		m.recordAnomaly(Anomaly{
			Cycle: cycle,
			Kind:  AnomalySignalShift,
			Description: fmt.Sprintf("Signal shifted from mean %.4f to %.4f (3σ = %.4f)",
				mean, signal, 3*stddev),
		})
	}
}

// detectStability records an extended-stability anomaly when the most recent
// StabilitySample window values have near-zero variance. A cooldown keyed on
// the cycle number prevents duplicate reports while the signal stays flat.
func (m *Monitor) detectStability(cycle int) {
	if len(m.window) < m.opts.StabilitySample {
		return
	}
	sample := m.window[len(m.window)-m.opts.StabilitySample:]
	_, stddev := meanStdDev(sample)

	if stddev >= m.opts.StabilityStdDev {
		return
	}
	if m.lastStable >= 0 && cycle-m.lastStable <= m.opts.StabilityCooldown {
		return
	}

	m.lastStable = cycle
	m.recordAnomaly(Anomaly{
		Cycle: cycle,
		Kind:  AnomalyExtendedStability,
		Description: fmt.Sprintf("Signal stable over %d cycles (stddev %.6f)",
			m.opts.StabilitySample, stddev),
	})
}

// checkEmergentProperties raises one-way flags. Raising a present flag is a
// no-op.
func (m *Monitor) checkEmergentProperties(obs Observation) {
	if len(m.observations) >= m.opts.EmergentSample {
		recent := m.observations[len(m.observations)-m.opts.EmergentSample:]
		var sum float64
		for _, o := range recent {
			sum += o.Signal
		}
		if sum/float64(len(recent)) > m.opts.HighIntegration {
			m.raiseFlag(FlagStableIntegration, obs.Cycle)
		}
	}

	if strings.Contains(obs.Summary, SelfAwarenessMarker) {
		m.raiseFlag(FlagSelfAwareness, obs.Cycle)
	}
}

func (m *Monitor) raiseFlag(flag string, cycle int) {
	if _, present := m.flagSet[flag]; present {
		return
	}
	m.flagSet[flag] = struct{}{}
	m.flags = append(m.flags, flag)
	log.Printf("[Telemetry] Emergent property detected in cycle %d: %s", cycle, flag)
}

func (m *Monitor) recordAnomaly(a Anomaly) {
	m.anomalies = append(m.anomalies, a)
	log.Printf("[Telemetry] Anomaly in cycle %d (%s): %s", a.Cycle, a.Kind, a.Description)
}

func (m *Monitor) pushWindow(signal float64) {
	m.window = append(m.window, signal)
	if len(m.window) > m.opts.WindowSize {
		m.window = m.window[len(m.window)-m.opts.WindowSize:]
	}
}

// Anomalies returns a copy of the anomaly log.
func (m *Monitor) Anomalies() []Anomaly {
	out := make([]Anomaly, len(m.anomalies))
	copy(out, m.anomalies)
	return out
}

// Flags returns the emergent flags in the order they were raised.
func (m *Monitor) Flags() []string {
	out := make([]string, len(m.flags))
	copy(out, m.flags)
	return out
}

// ObservationCount returns the total number of recorded observations.
func (m *Monitor) ObservationCount() int {
	return len(m.observations)
}

// LastObservation returns the most recent observation, or false if none
// exists yet.
func (m *Monitor) LastObservation() (Observation, bool) {
	if len(m.observations) == 0 {
		return Observation{}, false
	}
	return m.observations[len(m.observations)-1], true
}

// meanStdDev returns the mean and population standard deviation of values.
// The denominator is guarded so an empty slice yields (0, 0) rather than a
// division by zero.
func meanStdDev(values []float64) (mean, stddev float64) {
	n := float64(max(1, len(values)))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}
