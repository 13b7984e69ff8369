// Package part defines the Part value that flows through the belt, cells,
// and discard bin.
package part

import "fmt"

// Type is the discriminant of a Part. The zero value is intentionally
// invalid: a Slot must never hold a zero-discriminant value (spec §3).
type Type int

const (
	// Invalid is the zero value; no Slot or buffer may hold it.
	Invalid Type = iota
	A
	B
	C
	D
)

// Types lists all four part discriminants in a fixed, stable order used
// wherever code needs to range over them deterministically (dispenser
// round-robin, kit vectors, discard-bin tallies).
var Types = [4]Type{A, B, C, D}

func (t Type) String() string {
	switch t {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case D:
		return "D"
	default:
		return "?"
	}
}

// ReturnedID is the sentinel identifier carried by a Part that has been
// released back onto the belt by a Cell's Return operation (spec §3, §9).
// The identity is never semantically load-bearing — no code branches on an
// id's value other than to check this sentinel for logging purposes.
const ReturnedID = -1

// Part is a single tagged unit moving through the pipeline.
type Part struct {
	Type Type
	ID   int64
}

// New builds a freshly-dispensed part with a unique id.
func New(t Type, id int64) Part {
	return Part{Type: t, ID: id}
}

// Returned reports whether this part carries the "previously handled"
// sentinel identifier.
func (p Part) Returned() bool { return p.ID == ReturnedID }

// AsReturned produces a copy of p carrying the sentinel id, preserving its
// Type (spec invariant 9: round-trip preserves the part-type budget).
func (p Part) AsReturned() Part { return Part{Type: p.Type, ID: ReturnedID} }

func (p Part) String() string {
	if p.Returned() {
		return fmt.Sprintf("%s(returned)", p.Type)
	}
	return fmt.Sprintf("%s#%d", p.Type, p.ID)
}
