package telemetry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed records n observations with a flat signal, continuing the monitor's
// cycle numbering from startCycle.
func feed(m *Monitor, startCycle, n int, signal float64) int {
	cycle := startCycle
	for i := 0; i < n; i++ {
		cycle++
		m.Observe(cycle, fmt.Sprintf("cycle %d reflection", cycle), signal, 0)
	}
	return cycle
}

func countKind(anomalies []Anomaly, kind AnomalyKind) int {
	n := 0
	for _, a := range anomalies {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func TestObserveReturnsValidObservation(t *testing.T) {
	m := NewMonitor(Options{})
	obs := m.Observe(1, "first reflection", 0.5, 3)

	require.NoError(t, obs.Validate())
	assert.Equal(t, 1, obs.Cycle)
	assert.Equal(t, 0.5, obs.Signal)
	assert.Equal(t, 3, obs.WorkspaceSize)
	assert.Equal(t, 1, m.ObservationCount())
}

func TestSignalShiftDetection(t *testing.T) {
	t.Run("no anomaly below sample size", func(t *testing.T) {
		m := NewMonitor(Options{})
		cycle := feed(m, 0, 19, 0.5)
		m.Observe(cycle+1, "spike", 0.9, 0)

		assert.Equal(t, 0, countKind(m.Anomalies(), AnomalySignalShift))
	})

	t.Run("anomaly on 21st observation after flat run", func(t *testing.T) {
		m := NewMonitor(Options{})
		cycle := feed(m, 0, 20, 0.5)
		m.Observe(cycle+1, "spike", 0.95, 0)

		anomalies := m.Anomalies()
		require.Equal(t, 1, countKind(anomalies, AnomalySignalShift))
		assert.Equal(t, 21, anomalies[0].Cycle)
	})

	t.Run("no anomaly when signal matches flat mean", func(t *testing.T) {
		m := NewMonitor(Options{})
		cycle := feed(m, 0, 20, 0.5)
		m.Observe(cycle+1, "steady", 0.5, 0)

		assert.Equal(t, 0, countKind(m.Anomalies(), AnomalySignalShift))
	})

	t.Run("threshold adapts to volatility", func(t *testing.T) {
		// Alternating signal has a large stddev; a value inside 3 sigma must
		// not trigger.
		m := NewMonitor(Options{})
		for i := 1; i <= 20; i++ {
			signal := 0.2
			if i%2 == 0 {
				signal = 0.8
			}
			m.Observe(i, "noisy", signal, 0)
		}
		m.Observe(21, "still noisy", 0.9, 0)

		assert.Equal(t, 0, countKind(m.Anomalies(), AnomalySignalShift))
	})
}

func TestExtendedStabilityDetection(t *testing.T) {
	t.Run("exactly one anomaly for 50 identical values", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 50, 0.42)

		anomalies := m.Anomalies()
		require.Equal(t, 1, countKind(anomalies, AnomalyExtendedStability))
		assert.Equal(t, 50, anomalies[0].Cycle)
	})

	t.Run("cooldown suppresses repeat within 100 cycles", func(t *testing.T) {
		m := NewMonitor(Options{})
		cycle := feed(m, 0, 50, 0.42)
		feed(m, cycle, 50, 0.42)

		assert.Equal(t, 1, countKind(m.Anomalies(), AnomalyExtendedStability))
	})

	t.Run("second anomaly after cooldown expires", func(t *testing.T) {
		m := NewMonitor(Options{})
		cycle := feed(m, 0, 50, 0.42) // anomaly at cycle 50
		cycle = feed(m, cycle, 101, 0.42)
		_ = cycle

		assert.Equal(t, 2, countKind(m.Anomalies(), AnomalyExtendedStability))
	})
}

func TestEmergentFlags(t *testing.T) {
	t.Run("stable integration after 10 high-signal cycles", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 10, 0.9)

		assert.Contains(t, m.Flags(), FlagStableIntegration)
	})

	t.Run("not raised below sample size", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 9, 0.9)

		assert.NotContains(t, m.Flags(), FlagStableIntegration)
	})

	t.Run("not raised for moderate signal", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 30, 0.5)

		assert.NotContains(t, m.Flags(), FlagStableIntegration)
	})

	t.Run("flags are idempotent and never removed", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 20, 0.9)
		feed(m, 20, 20, 0.1) // integration collapses; flag must survive

		flags := m.Flags()
		assert.Equal(t, []string{FlagStableIntegration}, flags)
	})

	t.Run("self awareness raised by marker phrase", func(t *testing.T) {
		m := NewMonitor(Options{})
		m.Observe(1, "I notice I am engaged in 2-order reflection about my own processes.", 0.5, 0)
		m.Observe(2, "I notice I am engaged in 2-order reflection about my own processes.", 0.5, 0)

		assert.Equal(t, []string{FlagSelfAwareness}, m.Flags())
	})
}

func TestGenerateReport(t *testing.T) {
	t.Run("empty log sentinel", func(t *testing.T) {
		m := NewMonitor(Options{})
		assert.Equal(t, EmptyReport, m.GenerateReport())
	})

	t.Run("high integration report", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 10, 0.9)

		report := m.GenerateReport()
		assert.Contains(t, report, "Total cognitive cycles: 10")
		assert.Contains(t, report, "Average signal: 0.9000")
		assert.Contains(t, report, FlagStableIntegration)
		assert.Contains(t, report, "sustained high integration")
	})

	t.Run("moderate integration report", func(t *testing.T) {
		m := NewMonitor(Options{})
		feed(m, 0, 5, 0.4)

		report := m.GenerateReport()
		assert.Contains(t, report, "Emergent properties: None")
		assert.Contains(t, report, "moderate information integration")
	})

	t.Run("report surfaces only last five anomalies", func(t *testing.T) {
		m := NewMonitor(Options{ShiftSample: 2, WindowSize: 10})
		// Alternate flat runs and spikes to pile up shift anomalies.
		cycle := 0
		for i := 0; i < 8; i++ {
			cycle = feed(m, cycle, 2, 0.5)
			cycle++
			m.Observe(cycle, "spike", 5.0+float64(i), 0)
		}

		anomalies := m.Anomalies()
		require.Greater(t, len(anomalies), 5)

		report := m.GenerateReport()
		assert.Contains(t, report, fmt.Sprintf("Detected anomalies: %d", len(anomalies)))

		// The oldest anomaly's cycle line must not appear.
		oldest := anomalies[0]
		assert.NotContains(t, report, fmt.Sprintf("- Cycle %d:", oldest.Cycle))
		newest := anomalies[len(anomalies)-1]
		assert.Contains(t, report, fmt.Sprintf("- Cycle %d:", newest.Cycle))
	})
}

func TestWindowIsBounded(t *testing.T) {
	m := NewMonitor(Options{})
	feed(m, 0, 500, 0.5)

	assert.LessOrEqual(t, len(m.window), DefaultWindowSize)
	assert.Equal(t, 500, m.ObservationCount())
}
