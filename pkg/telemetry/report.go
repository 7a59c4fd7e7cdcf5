package telemetry

import (
	"fmt"
	"strings"
)

// EmptyReport is returned by GenerateReport before any observation exists.
const EmptyReport = "No observations recorded yet."

// GenerateReport renders the cumulative introspection report. The all-time
// mean covers the entire observation log, not the sliding window; anomalies
// are summarised by count with the last five spelled out.
func (m *Monitor) GenerateReport() string {
	if len(m.observations) == 0 {
		return EmptyReport
	}

	total := len(m.observations)
	var sum float64
	for _, o := range m.observations {
		sum += o.Signal
	}
	avg := sum / float64(max(1, total))

	flagList := "None"
	if len(m.flags) > 0 {
		flagList = strings.Join(m.flags, ", ")
	}

	lines := []string{
		"=== Noesis Introspection Report ===",
		fmt.Sprintf("Total cognitive cycles: %d", total),
		fmt.Sprintf("Average signal: %.4f", avg),
		fmt.Sprintf("Detected anomalies: %d", len(m.anomalies)),
		fmt.Sprintf("Emergent properties: %s", flagList),
	}

	if len(m.flags) > 0 {
		lines = append(lines, "", "Emergent Properties Analysis:")
		for _, flag := range m.flags {
			lines = append(lines, fmt.Sprintf("- %s: detected through introspective monitoring", flag))
		}
	}

	if len(m.anomalies) > 0 {
		lines = append(lines, "", "Significant System Events:")
		recent := m.anomalies
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		for _, a := range recent {
			lines = append(lines, fmt.Sprintf("- Cycle %d: %s", a.Cycle, a.Description))
		}
	}

	lines = append(lines, "", "Conclusion:")
	if avg > m.opts.HighIntegration {
		lines = append(lines, "The system shows sustained high integration, suggesting a unified information space.")
	} else {
		lines = append(lines, "The system shows moderate information integration with potential for development.")
	}

	return strings.Join(lines, "\n")
}
