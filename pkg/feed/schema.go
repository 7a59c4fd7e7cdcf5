package feed

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// multiple Noesis engines can safely coexist on a single Redis server.
//
// Key pattern: noesis:{instance_name}:{entity}
// Channel pattern: noesis:{instance_name}:{event_type}_events

// CycleEventsChannel returns the Pub/Sub channel name for cycle events.
// Pattern: noesis:{instance_name}:cycle_events
func CycleEventsChannel(instanceName string) string {
	return fmt.Sprintf("noesis:%s:cycle_events", instanceName)
}

// StateKey returns the Redis key for the mirrored state hash.
// Pattern: noesis:{instance_name}:state
func StateKey(instanceName string) string {
	return fmt.Sprintf("noesis:%s:state", instanceName)
}

// ReportKey returns the Redis key for the stored introspection report.
// Pattern: noesis:{instance_name}:report
func ReportKey(instanceName string) string {
	return fmt.Sprintf("noesis:%s:report", instanceName)
}
