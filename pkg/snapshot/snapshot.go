package snapshot

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// DefaultMaxScalarLen is the default upper bound on the length of any
// stringified value inside a snapshot.
const DefaultMaxScalarLen = 100

// maxRenderDepth caps how far the bounded renderer descends into nested
// containers. Combined with the length limit this guarantees termination on
// self-referential structures.
const maxRenderDepth = 4

// Snapshot is a bounded, acyclic copy of a State, created fresh each cycle
// and discarded after it. Every value is either a copied scalar, a
// map[string]string, or a []string; no value aliases anything owned by the
// live state.
type Snapshot struct {
	keys         []string
	values       map[string]any
	maxScalarLen int
}

// Snapshotter converts live state into snapshots.
type Snapshotter struct {
	maxScalarLen int
}

// NewSnapshotter creates a snapshotter. A maxScalarLen below 1 selects
// DefaultMaxScalarLen.
func NewSnapshotter(maxScalarLen int) *Snapshotter {
	if maxScalarLen < 1 {
		maxScalarLen = DefaultMaxScalarLen
	}
	return &Snapshotter{maxScalarLen: maxScalarLen}
}

// Take builds a snapshot of the state. Applied per value, in insertion order
// of keys:
//
//   - scalars are copied as-is
//   - mappings keep their keys; each value is stringified and truncated
//   - sequences keep their order; each element is stringified and truncated
//   - anything else is stringified and truncated wholesale
//
// The per-key result is therefore O(1)-bounded regardless of nesting depth,
// and stringification terminates even when the state holds self-referential
// containers.
func (sn *Snapshotter) Take(s *State) Snapshot {
	snap := Snapshot{
		keys:         s.Keys(),
		values:       make(map[string]any, s.Len()),
		maxScalarLen: sn.maxScalarLen,
	}
	for _, key := range snap.keys {
		v, _ := s.Get(key)
		snap.values[key] = sn.snapshotValue(v)
	}
	return snap
}

// View returns a poll-friendly copy of the state for presentation layers.
// It is snapshot-shaped (bounded and acyclic), so mutating it cannot touch
// the live state.
func (sn *Snapshotter) View(s *State) map[string]any {
	return sn.Take(s).Values()
}

func (sn *Snapshotter) snapshotValue(v any) any {
	switch kindOf(v) {
	case kindScalar:
		return v

	case kindMapping:
		rv := reflect.ValueOf(v)
		flat := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := renderBounded(iter.Key().Interface(), sn.maxScalarLen)
			flat[key] = renderBounded(iter.Value().Interface(), sn.maxScalarLen)
		}
		return flat

	case kindSequence:
		rv := reflect.ValueOf(v)
		flat := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			flat[i] = renderBounded(rv.Index(i).Interface(), sn.maxScalarLen)
		}
		return flat

	default:
		return renderBounded(v, sn.maxScalarLen)
	}
}

// Get returns the snapshot value stored under key and whether it exists.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value under key rendered as a string, or "" if the
// key is absent. Rendering honours the scalar limit the snapshot was taken
// with. Convenience for stages that only want a textual view.
func (s Snapshot) GetString(key string) string {
	v, ok := s.values[key]
	if !ok {
		return ""
	}
	limit := s.maxScalarLen
	if limit < 1 {
		limit = DefaultMaxScalarLen
	}
	return renderBounded(v, limit)
}

// Keys returns the snapshot's keys in state insertion order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of keys in the snapshot.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Values returns the snapshot as a plain map. The map is freshly allocated on
// each call; scalar values are shared (they are immutable), container values
// are the snapshot's own flattened copies.
func (s Snapshot) Values() map[string]any {
	values := make(map[string]any, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return values
}

// renderBounded renders v to a string of at most limit runes. Containers are
// rendered in fmt's map[k:v] / [a b] style with sorted map keys, descending at
// most maxRenderDepth levels and stopping early once the budget is spent, so
// cyclic or deeply nested values always terminate.
func renderBounded(v any, limit int) string {
	var b strings.Builder
	render(&b, v, 0, limit)
	return truncate(b.String(), limit)
}

func render(b *strings.Builder, v any, depth, limit int) {
	if b.Len() > limit {
		return
	}
	if depth > maxRenderDepth {
		b.WriteString("...")
		return
	}
	if v == nil {
		b.WriteString("<nil>")
		return
	}

	switch kindOf(v) {
	case kindScalar:
		fmt.Fprintf(b, "%v", v)

	case kindMapping:
		rv := reflect.ValueOf(v)
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprintf("%v", iter.Key().Interface())
			keys = append(keys, k)
			byKey[k] = iter.Value()
		}
		sort.Strings(keys)

		b.WriteString("map[")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k)
			b.WriteByte(':')
			render(b, byKey[k].Interface(), depth+1, limit)
			if b.Len() > limit {
				return
			}
		}
		b.WriteByte(']')

	case kindSequence:
		rv := reflect.ValueOf(v)
		b.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			render(b, rv.Index(i).Interface(), depth+1, limit)
			if b.Len() > limit {
				return
			}
		}
		b.WriteByte(']')

	default:
		// Structs, pointers, funcs, channels. A Stringer speaks for itself;
		// everything else is walked reflectively, because handing an arbitrary
		// pointer graph to fmt can recurse forever.
		if s, ok := v.(fmt.Stringer); ok {
			b.WriteString(truncate(s.String(), limit))
			return
		}
		if e, ok := v.(error); ok {
			b.WriteString(truncate(e.Error(), limit))
			return
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				b.WriteString("<nil>")
				return
			}
			render(b, rv.Elem().Interface(), depth+1, limit)
		case reflect.Struct:
			renderStruct(b, rv, depth, limit)
		default:
			fmt.Fprintf(b, "%v", v)
		}
	}
}

func renderStruct(b *strings.Builder, rv reflect.Value, depth, limit int) {
	rt := rv.Type()
	b.WriteByte('{')
	wrote := false
	for i := 0; i < rt.NumField(); i++ {
		if !rt.Field(i).IsExported() {
			continue
		}
		if wrote {
			b.WriteByte(' ')
		}
		wrote = true
		b.WriteString(rt.Field(i).Name)
		b.WriteByte(':')
		render(b, rv.Field(i).Interface(), depth+1, limit)
		if b.Len() > limit {
			return
		}
	}
	b.WriteByte('}')
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
