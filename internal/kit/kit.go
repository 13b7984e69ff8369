// Package kit implements the per-cell Kit (the SET being assembled) and
// its Overflow buffer (spec §3, §4.4).
package kit

import (
	"sync"

	"github.com/kitline/kitline/internal/part"
)

// Kit is a fixed-size vector indexed by part type carrying
// (current, required) and a completion flag. The zero value is an empty,
// incomplete kit.
//
// Kit is protected by two things together, per spec §5/§9: a mutex guards
// the data representation, and a separate placer semaphore (held by
// internal/cell.Cell) enforces "exactly one placer at a time" as an
// explicit resource rather than caller discipline.
type Kit struct {
	mu        sync.Mutex
	current   [4]int
	required  [4]int
	complete  bool
}

// New builds a Kit with the given per-type requirements.
func New(required [4]int) *Kit {
	return &Kit{required: required}
}

// Required returns the per-set requirement for t.
func (k *Kit) Required(t part.Type) int {
	if t < part.A || t > part.D {
		return 0
	}
	return k.required[t-part.A]
}

// Snapshot returns a defensive copy of (current, required, complete) under
// lock — used by the operator's classification read and by diagnostics.
func (k *Kit) Snapshot() (current, required [4]int, complete bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current, k.required, k.complete
}

// Needed reports whether the kit still needs at least one more unit of t
// (current[t] < required[t]), ignoring overflow. Callers wanting "total
// need" (spec §4.4) combine this with the overflow count themselves.
func (k *Kit) Needed(t part.Type) bool {
	if t < part.A || t > part.D {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	i := t - part.A
	return k.current[i] < k.required[i]
}

// Current returns current[t].
func (k *Kit) Current(t part.Type) int {
	if t < part.A || t > part.D {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current[t-part.A]
}

// Take decrements current[t] by one if positive, reporting whether it did.
// Used by Cell.Return after a unit has been successfully pushed back onto
// the belt (spec §4.4 step 3).
func (k *Kit) Take(t part.Type) bool {
	if t < part.A || t > part.D {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	i := t - part.A
	if k.current[i] <= 0 {
		return false
	}
	k.current[i]--
	return true
}

// Missing returns required[t]-current[t] (>=0).
func (k *Kit) Missing(t part.Type) int {
	if t < part.A || t > part.D {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	i := t - part.A
	m := k.required[i] - k.current[i]
	if m < 0 {
		return 0
	}
	return m
}

// Place increments current[t] if still needed, reporting whether it was
// applied and whether the kit became complete as a result. Callers must
// hold the cell's placer permit before calling Place (spec §4.3 phase 2).
func (k *Kit) Place(t part.Type) (applied, becameComplete bool) {
	if t < part.A || t > part.D {
		return false, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	i := t - part.A
	if k.current[i] >= k.required[i] {
		return false, false
	}
	k.current[i]++
	if k.isComplete() {
		k.complete = true
		becameComplete = true
	}
	return true, becameComplete
}

func (k *Kit) isComplete() bool {
	for i := range k.required {
		if k.current[i] != k.required[i] {
			return false
		}
	}
	return true
}

// Reset zeroes current counts and clears the completion flag (used by the
// Operator after acknowledgement, and by Cell.Return). Idempotent on an
// already-empty kit (spec invariant 10).
func (k *Kit) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.current {
		k.current[i] = 0
	}
	k.complete = false
}

// Empty reports whether all current counts are zero.
func (k *Kit) Empty() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, c := range k.current {
		if c != 0 {
			return false
		}
	}
	return true
}

// Overflow is a bounded sequence of parts momentarily un-assignable to the
// kit but still potentially useful to the same cell (capacity B, spec §3).
type Overflow struct {
	mu       sync.Mutex
	capacity int
	parts    []part.Part
}

// NewOverflow builds an overflow buffer with the given capacity.
func NewOverflow(capacity int) *Overflow {
	return &Overflow{capacity: capacity, parts: make([]part.Part, 0, capacity)}
}

// Push appends p if there is room; reports whether it was accepted. A
// rejection is the documented silent-drop behavior of spec §7.
func (o *Overflow) Push(p part.Part) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.parts) >= o.capacity {
		return false
	}
	o.parts = append(o.parts, p)
	return true
}

// TakeFirst removes and returns the first part of type t, if present.
func (o *Overflow) TakeFirst(t part.Type) (part.Part, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, p := range o.parts {
		if p.Type == t {
			o.parts = append(o.parts[:i], o.parts[i+1:]...)
			return p, true
		}
	}
	return part.Part{}, false
}

// CountByType counts parts of type t currently buffered.
func (o *Overflow) CountByType(t part.Type) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, p := range o.parts {
		if p.Type == t {
			n++
		}
	}
	return n
}

// Empty reports whether the overflow buffer currently holds nothing.
func (o *Overflow) Empty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.parts) == 0
}

// DrainAll empties the buffer, returning everything it held (used by
// Cell.Return).
func (o *Overflow) DrainAll() []part.Part {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.parts
	o.parts = make([]part.Part, 0, o.capacity)
	return out
}
