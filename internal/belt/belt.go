// Package belt implements the conveyor belt: a fixed-length sequence of
// bounded slots that advances one step per tick (spec §3, §4.1).
package belt

import (
	"sync"
	"sync/atomic"

	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
)

// SlotCapacity bounds the multiset cardinality of any belt slot. Dispenser
// head-injection is further bounded by the number of dispensers (spec
// §4.1); HeadInject uses the smaller of the two bounds.
const SlotCapacity = 16

// Slot is a bounded multiset of parts at one belt position.
type Slot struct {
	mu    sync.Mutex
	parts []part.Part
}

func newSlot() *Slot { return &Slot{parts: make([]part.Part, 0, SlotCapacity)} }

// Len reports the current cardinality under lock.
func (s *Slot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

// Snapshot returns a defensive copy of the slot's current contents.
func (s *Slot) Snapshot() []part.Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]part.Part, len(s.parts))
	copy(out, s.parts)
	return out
}

// push appends a part if under capacity; reports whether it fit.
func (s *Slot) push(p part.Part, capacity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.parts) >= capacity {
		return false
	}
	s.parts = append(s.parts, p)
	return true
}

// withdrawMatching removes and returns the leftmost part satisfying pred.
func (s *Slot) withdrawMatching(pred func(part.Type) bool) (part.Part, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.parts {
		if pred(p.Type) {
			s.parts = append(s.parts[:i], s.parts[i+1:]...)
			return p, true
		}
	}
	return part.Part{}, false
}

// drainAll empties the slot, returning everything it held.
func (s *Slot) drainAll() []part.Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.parts
	s.parts = make([]part.Part, 0, SlotCapacity)
	return out
}

// Belt is the ordered sequence of Slots plus the discard bin tallies.
//
// Lock order (spec §4.1): any operation touching multiple slots (Advance)
// acquires the coarse belt lock before any slot lock; any single-slot
// operation (HeadInject, Return, PeekSlot, WithdrawMatching) acquires only
// that slot's lock.
type Belt struct {
	coarse sync.Mutex // ordered ahead of slot locks during Advance
	slots  []*Slot

	numDispensers int

	discard [4]atomic.Int64 // indexed by t-part.A
}

// New builds a belt of length n with headCapacity equal to the dispenser
// count (spec §4.1: "capacity on injection is num_dispensers").
func New(n, numDispensers int) *Belt {
	b := &Belt{slots: make([]*Slot, n), numDispensers: numDispensers}
	for i := range b.slots {
		b.slots[i] = newSlot()
	}
	return b
}

// Len is the belt length N.
func (b *Belt) Len() int { return len(b.slots) }

// Discard returns the running per-type discard-bin count.
func (b *Belt) Discard(t part.Type) int64 {
	if t < part.A || t > part.D {
		return 0
	}
	return b.discard[t-part.A].Load()
}

// Advance drains the tail slot into the discard bin, then shifts every
// slot i-1 into slot i for i = N-1..1. The head is empty after the shift.
func (b *Belt) Advance() {
	b.coarse.Lock()
	defer b.coarse.Unlock()

	n := len(b.slots)
	tail := b.slots[n-1].drainAll()
	for _, p := range tail {
		if p.Type >= part.A && p.Type <= part.D {
			b.discard[p.Type-part.A].Add(1)
		}
	}
	for i := n - 1; i >= 1; i-- {
		moved := b.slots[i-1].drainAll()
		b.slots[i].mu.Lock()
		b.slots[i].parts = append(b.slots[i].parts[:0], moved...)
		b.slots[i].mu.Unlock()
	}
	if nlog.FastV(6) {
		nlog.Infof("belt: advanced, discard=%v", b.discard)
	}
}

// HeadInject appends a part to the head slot if it has room, bounded by
// the per-tick dispenser head capacity rather than the slot's full
// capacity (spec §4.1).
func (b *Belt) HeadInject(p part.Part) bool {
	capacity := b.numDispensers
	if capacity > SlotCapacity {
		capacity = SlotCapacity
	}
	return b.slots[0].push(p, capacity)
}

// Return inserts a part into the target slot, capped by slot capacity.
// Callers (Cell.Return) compute the target position per spec §4.1/§4.4.
func (b *Belt) Return(p part.Part, position int) bool {
	if position < 0 {
		position = 0
	}
	if position >= len(b.slots) {
		position = len(b.slots) - 1
	}
	return b.slots[position].push(p, SlotCapacity)
}

// PeekSlot returns a snapshot of the slot at position, for arms scanning
// availability without withdrawing.
func (b *Belt) PeekSlot(position int) []part.Part {
	return b.slots[position].Snapshot()
}

// WithdrawMatching removes and returns the leftmost part at position whose
// type satisfies pred (leftmost-first per spec §4.3).
func (b *Belt) WithdrawMatching(position int, pred func(part.Type) bool) (part.Part, bool) {
	return b.slots[position].withdrawMatching(pred)
}

// CountByType tallies parts of type t across slots [0, upto] inclusive,
// used by the progress detector's "available" computation (spec §4.3).
func (b *Belt) CountByType(t part.Type, upto int) int {
	if upto >= len(b.slots) {
		upto = len(b.slots) - 1
	}
	n := 0
	for i := 0; i <= upto; i++ {
		for _, p := range b.slots[i].Snapshot() {
			if p.Type == t {
				n++
			}
		}
	}
	return n
}
