// Package snapshot provides the orchestrator-owned process state and the
// snapshot mechanism that makes it safe to hand state to pluggable stages.
//
// Stages never see the live state. They receive a Snapshot: a deep,
// depth-1-normalised copy in which every nested container has been flattened
// to bounded strings. A snapshot can never hold a reference back into the
// live state or into itself, so reference cycles between stages and state are
// impossible by construction rather than by runtime cycle detection.
package snapshot

import (
	"reflect"
)

// storeRenderLimit bounds the stringified form of non-container values at
// store time. Snapshots apply the (tighter) per-scalar limit on top.
const storeRenderLimit = 1024

// State is the insertion-ordered process state owned by the cycle
// orchestrator. It is mutated only through Set and is not safe for concurrent
// use; presentation layers should poll View instead of holding a reference.
type State struct {
	keys   []string
	values map[string]any
}

// NewState creates an empty process state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Set applies a single state update. Scalars, mappings and sequences are
// stored live (they become part of the state and are flattened on the next
// snapshot); any other kind is stringified immediately so no foreign object
// graph can take root inside the state.
func (s *State) Set(key string, value any) {
	switch kindOf(value) {
	case kindScalar, kindMapping, kindSequence:
		// stored as-is
	default:
		value = renderBounded(value, storeRenderLimit)
	}

	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value stored under key and whether it exists.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the state's keys in insertion order as a fresh slice.
func (s *State) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of keys in the state.
func (s *State) Len() int {
	return len(s.keys)
}

// valueKind classifies a value for the snapshot rules.
type valueKind int

const (
	kindScalar valueKind = iota
	kindMapping
	kindSequence
	kindOther
)

// kindOf classifies a value. Strings, booleans, numbers and nil are scalars;
// any map kind is a mapping; slices and arrays are sequences.
func kindOf(v any) valueKind {
	if v == nil {
		return kindScalar
	}
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return kindScalar
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map:
		return kindMapping
	case reflect.Slice, reflect.Array:
		return kindSequence
	default:
		return kindOther
	}
}
