// Package workspace implements the attention-gated broadcast buffer at the
// centre of the cognitive cycle. Each cycle, candidate content items compete
// for admission to a fixed-capacity history; the single highest-attention
// candidate becomes the "spotlight" broadcast that the rest of the system sees.
//
// Admission and the spotlight are deliberately asymmetric: admission to the
// history requires an attention value strictly above the threshold, but the
// spotlight is chosen from the full, unfiltered candidate set.
package workspace

import "fmt"

const (
	// DefaultCapacity is the default number of entries retained in the history.
	DefaultCapacity = 10

	// DefaultAttentionThreshold is the default admission threshold.
	// Candidates must strictly exceed it to enter the history.
	DefaultAttentionThreshold = 0.7
)

// Candidate is one item competing for broadcast in the current cycle.
// Candidates are ephemeral - they are supplied fresh each cycle and are not
// retained beyond the buffer.
//
// Candidate sets cross this boundary as an ordered slice rather than a map:
// the tie-break for the spotlight is "first encountered wins", which needs a
// stable iteration order.
type Candidate struct {
	ID        string
	Content   any
	Attention float64
}

// Entry is a single admitted item in the workspace history.
type Entry struct {
	ID      string
	Content any
}

// Buffer is the fixed-capacity broadcast history. It is owned by a single
// orchestrator and is not safe for concurrent use.
type Buffer struct {
	capacity  int
	threshold float64
	entries   []Entry
	current   any // sticky spotlight; persists across cycles with no admissions
}

// New creates a buffer with the given history capacity and admission
// threshold. Capacity must be at least 1.
func New(capacity int, threshold float64) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("workspace capacity must be >= 1, got %d", capacity)
	}
	return &Buffer{
		capacity:  capacity,
		threshold: threshold,
		entries:   make([]Entry, 0, capacity),
	}, nil
}

// NewDefault creates a buffer with DefaultCapacity and DefaultAttentionThreshold.
func NewDefault() *Buffer {
	b, _ := New(DefaultCapacity, DefaultAttentionThreshold)
	return b
}

// Broadcast admits candidates above the attention threshold into the history
// and returns the current spotlight content.
//
// Every candidate whose attention strictly exceeds the threshold is appended
// to the history, evicting the oldest entry once capacity is reached. This is
// a ring, not a priority queue: attention gates admission, never retention
// order.
//
// If at least one candidate was admitted, the spotlight becomes the content of
// the maximum-attention candidate in the full input set - including candidates
// that failed the threshold. Ties go to the first candidate encountered. If no
// candidate passes the threshold, both the history and the previous spotlight
// are left unchanged.
func (b *Buffer) Broadcast(candidates []Candidate) any {
	admitted := false
	for _, c := range candidates {
		if c.Attention > b.threshold {
			b.append(Entry{ID: c.ID, Content: c.Content})
			admitted = true
		}
	}

	if admitted {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Attention > best.Attention {
				best = c
			}
		}
		b.current = best.Content
	}

	return b.current
}

// Contents returns the current history as an id -> content map.
// If an id appears more than once in the history, the most recent entry wins.
// The returned map is a fresh copy; callers may mutate it freely.
func (b *Buffer) Contents() map[string]any {
	contents := make(map[string]any, len(b.entries))
	for _, e := range b.entries {
		contents[e.ID] = e.Content
	}
	return contents
}

// Spotlight returns the current primary broadcast, or nil if no candidate has
// ever been admitted.
func (b *Buffer) Spotlight() any {
	return b.current
}

// Len returns the number of entries currently in the history.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Capacity returns the fixed history capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// append adds an entry, evicting the oldest when at capacity.
func (b *Buffer) append(e Entry) {
	if len(b.entries) == b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = e
		return
	}
	b.entries = append(b.entries, e)
}
