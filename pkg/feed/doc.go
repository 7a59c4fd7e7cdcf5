// Package feed provides the Redis-backed telemetry feed for a running engine.
//
// An engine publishes one CycleEvent per completed cognitive cycle and mirrors
// its latest flattened state and introspection report into Redis, where
// external observers (the `noesis watch` and `noesis report` commands, or any
// other consumer) can follow a run without sharing the engine's process.
//
// All keys and channels are namespaced by instance name, so multiple engines
// can safely share one Redis server. Pub/Sub delivery is at-most-once: a slow
// or absent observer misses events, it never stalls the engine.
package feed
